// Package agentconfig is the agent's configuration type tree: every
// field the rest of the module needs at startup, loaded via viper from
// a config file, environment variables, and defaults. It follows the
// same mapstructure-tagged struct style as the teacher's own
// configuration package, trimmed to one coherent agent rather than a
// whole platform's worth of subsystems.
package agentconfig

import (
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/ulta-agent/ulta/errors"
)

// Config is the full set of external inputs cmd/ulta needs to wire the
// agent together. The layered merge itself (file/env/flag precedence)
// is handled entirely by viper; this package only shapes the result.
type Config struct {
	Agent     AgentConfig     `mapstructure:"agent"`
	Transport TransportConfig `mapstructure:"transport"`
	Tank      TankConfig      `mapstructure:"tank"`
	Reporter  ReporterConfig  `mapstructure:"reporter"`
	Admin     AdminConfig     `mapstructure:"admin"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Run       RunConfig       `mapstructure:"run"`
}

// AgentConfig covers identity and registration (§4.6) plus the
// filesystem layout (§6.4).
type AgentConfig struct {
	Name              string `mapstructure:"name"`
	Version           string `mapstructure:"version"`
	FolderID          string `mapstructure:"folder_id"`
	ComputeInstanceID string `mapstructure:"compute_instance_id"`
	InstanceLTCreated bool   `mapstructure:"instance_lt_created"`
	NoCache           bool   `mapstructure:"no_cache"`

	WorkDir     string `mapstructure:"work_dir"`
	LockDir     string `mapstructure:"lock_dir"`
	AgentIDFile string `mapstructure:"agent_id_file"`
}

// TransportConfig carries every transport's own connection settings.
// Name is loaded from configuration, but startup wiring does not read
// it: it always builds both the grpc control-plane client and the s3
// object store.
type TransportConfig struct {
	Name string     `mapstructure:"name"`
	GRPC GRPCConfig `mapstructure:"grpc"`
	S3   S3Config   `mapstructure:"s3"`
}

// GRPCConfig configures the control-plane gRPC client (§6.1).
type GRPCConfig struct {
	Address string `mapstructure:"address"`
}

// S3Config configures the object store client (§6.2).
type S3Config struct {
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UsePathStyle    bool   `mapstructure:"use_path_style"`
	DefaultBucket   string `mapstructure:"default_bucket"`
}

// TankConfig configures the Generator's subprocess and the telemetry
// uploader worker pool (§4.7).
type TankConfig struct {
	GeneratorBinary        string `mapstructure:"generator_binary"`
	DataUploaderAPIAddress string `mapstructure:"data_uploader_api_address"`
	NetortDir              string `mapstructure:"netort_dir"`
}

// ReporterConfig configures the background log-event Reporter (§4.3).
type ReporterConfig struct {
	RetentionPeriod       time.Duration `mapstructure:"retention_period"`
	ReportInterval        time.Duration `mapstructure:"report_interval"`
	MaxUnsentSize         int           `mapstructure:"max_unsent_size"`
	UseExponentialBackoff bool          `mapstructure:"use_exponential_backoff"`
}

// AdminConfig configures the loopback admin HTTP API (C11) and the
// control loop's own pacing.
type AdminConfig struct {
	Port                 int           `mapstructure:"port"`
	HealthcheckInterval  time.Duration `mapstructure:"healthcheck_interval"`
	StatusReportInterval time.Duration `mapstructure:"status_report_interval"`
	SleepTime            time.Duration `mapstructure:"sleep_time"`
	MaxWaitingTime       time.Duration `mapstructure:"max_waiting_time"`
}

// LoggingConfig configures the ambient logging stack (logger.Initialize).
type LoggingConfig struct {
	JSONOutput bool `mapstructure:"json_output"`
	Verbosity  int  `mapstructure:"verbosity"`
}

// RunConfig selects single-job mode (§6.5's `run <test_id>`); TestID
// empty means `serve`.
type RunConfig struct {
	TestID string `mapstructure:"test_id"`
}

// Default returns a Config with every field set to the values spec.md
// and SPEC_FULL.md name as defaults, before any file/env/flag overrides
// are applied.
func Default() Config {
	return Config{
		Agent: AgentConfig{
			WorkDir:     "/var/lib/ulta",
			LockDir:     "/var/lib/ulta/lock",
			AgentIDFile: "/var/lib/ulta/agent_id",
		},
		Transport: TransportConfig{
			Name: "grpc",
			GRPC: GRPCConfig{Address: "localhost:9090"},
		},
		Tank: TankConfig{
			GeneratorBinary: "yandex-tank",
			NetortDir:       "/var/lib/ulta/netort",
		},
		Reporter: ReporterConfig{
			RetentionPeriod: time.Hour,
			ReportInterval:  5 * time.Second,
			MaxUnsentSize:   1000,
		},
		Admin: AdminConfig{
			Port:                 8080,
			HealthcheckInterval:  30 * time.Second,
			StatusReportInterval: time.Second,
			SleepTime:            time.Second,
			MaxWaitingTime:       300 * time.Second,
		},
	}
}

// Load builds a Config from Default, layering in a config file (when
// path is non-empty) and ULTA_-prefixed environment variables, viper's
// own documented precedence (env > file > defaults).
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("ulta")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	applyDefaults(v, Default())

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config file %s", path)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "decode configuration")
	}
	return &cfg, nil
}

// applyDefaults registers the non-zero fields of defaults as viper
// defaults, one SetDefault call per mapstructure key, so Load without a
// config file still produces a fully populated Config.
func applyDefaults(v *viper.Viper, defaults Config) {
	v.SetDefault("agent.work_dir", defaults.Agent.WorkDir)
	v.SetDefault("agent.lock_dir", defaults.Agent.LockDir)
	v.SetDefault("agent.agent_id_file", defaults.Agent.AgentIDFile)
	v.SetDefault("transport.name", defaults.Transport.Name)
	v.SetDefault("transport.grpc.address", defaults.Transport.GRPC.Address)
	v.SetDefault("tank.generator_binary", defaults.Tank.GeneratorBinary)
	v.SetDefault("tank.netort_dir", defaults.Tank.NetortDir)
	v.SetDefault("reporter.retention_period", defaults.Reporter.RetentionPeriod)
	v.SetDefault("reporter.report_interval", defaults.Reporter.ReportInterval)
	v.SetDefault("reporter.max_unsent_size", defaults.Reporter.MaxUnsentSize)
	v.SetDefault("admin.port", defaults.Admin.Port)
	v.SetDefault("admin.healthcheck_interval", defaults.Admin.HealthcheckInterval)
	v.SetDefault("admin.status_report_interval", defaults.Admin.StatusReportInterval)
	v.SetDefault("admin.sleep_time", defaults.Admin.SleepTime)
	v.SetDefault("admin.max_waiting_time", defaults.Admin.MaxWaitingTime)
}
