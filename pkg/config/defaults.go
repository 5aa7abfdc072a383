package config

// Storage driver names.
const (
	StorageMemory   = "memory"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
)

const (
	defaultStorageDriver = StorageMemory
	defaultAPIListen     = ":8090"

	defaultInterval      = "15s"
	defaultPollInterval  = "1s"
	defaultErrorCooldown = "1s"
	defaultBacklogWarn   = 500
	defaultMeeting       = "meeting"

	defaultProvider   = "ollama"
	defaultLLMTimeout = "60s"

	defaultKafkaTopic = "minutes.summaries"

	defaultClientAPITarget = "http://localhost:8090"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Storage: StorageConfig{
			Driver: defaultStorageDriver,
		},
		API: APIConfig{
			Listen: defaultAPIListen,
		},
		Summarizer: SummarizerConfig{
			Interval:      defaultInterval,
			PollInterval:  defaultPollInterval,
			ErrorCooldown: defaultErrorCooldown,
			BacklogWarn:   defaultBacklogWarn,
			Meeting:       defaultMeeting,
		},
		LLM: LLMConfig{
			Provider: defaultProvider,
			Timeout:  defaultLLMTimeout,
		},
		EventStream: EventStreamConfig{
			KafkaTopic: defaultKafkaTopic,
		},
		Client: ClientConfig{
			APITarget: defaultClientAPITarget,
		},
	}
}
