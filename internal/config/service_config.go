package config

type ServiceConfig struct {
	Version         string `mapstructure:"version,omitempty"`
	Build           string `mapstructure:"build,omitempty"`
	BuildDate       string `mapstructure:"build_date,omitempty"`
	Port            int    `mapstructure:"port,omitempty"`
	ReadyFile       string `mapstructure:"ready_file"`
	TerminationFile string `mapstructure:"termination_file"`
	LocalMode       bool   `mapstructure:"local_mode,omitempty"`
}

type Config struct {
	Service    *ServiceConfig    `mapstructure:"service,omitempty"`
	JobService *JobServiceConfig `mapstructure:"job_service,omitempty"`
	Polling    *PollingConfig    `mapstructure:"polling,omitempty"`
	Tracing    *TracingConfig    `mapstructure:"tracing,omitempty"`
}
