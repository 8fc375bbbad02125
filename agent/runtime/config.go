package runtime

import "time"

type Config struct {
	DefaultTenantID     string        `envconfig:"DEFAULT_TENANT_ID" split_words:"true" default:"tenant_001"`
	KBTopK              int           `envconfig:"KB_TOP_K" split_words:"true" default:"4"`
	MaxSteps            int           `envconfig:"MAX_STEPS" split_words:"true" default:"32"`
	RunTimeout          time.Duration `envconfig:"RUN_TIMEOUT" split_words:"true" default:"2m"`
	CheckpointEveryNode bool          `envconfig:"CHECKPOINT_EVERY_NODE" split_words:"true" default:"false"`
	EmailDestination    string        `envconfig:"EMAIL_DESTINATION" split_words:"true"`
	ArchiveDestination  string        `envconfig:"ARCHIVE_DESTINATION" split_words:"true"`
}
