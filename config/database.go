package config

import (
	"time"

	"remindly/utils"

	"go.mongodb.org/mongo-driver/mongo/options"
)

type DatabaseConfig struct {
	URI                    string
	MaxPoolSize            uint64
	MinPoolSize            uint64
	MaxConnIdleTime        time.Duration
	DatabaseName           string
	RetryWrites            bool
	TasksCollection        string
	UsersCollection        string
	ReminderJobsCollection string
}

func LoadDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		URI:                    utils.GetEnvAsString("MONGO_URI", ""),
		MaxPoolSize:            utils.GetEnvAsUint64("MONGO_MAX_POOL_SIZE", 100),
		MinPoolSize:            utils.GetEnvAsUint64("MONGO_MIN_POOL_SIZE", 10),
		MaxConnIdleTime:        time.Duration(utils.GetEnvAsInt("MONGO_MAX_CONN_IDLE_TIME", 60)) * time.Second,
		DatabaseName:           utils.GetEnvAsString("MONGO_DB", "remindly"),
		RetryWrites:            utils.GetEnvAsBool("MONGO_RETRY_WRITES", true),
		TasksCollection:        utils.GetEnvAsString("TASKS_COLLECTION", "tasks"),
		UsersCollection:        utils.GetEnvAsString("USERS_COLLECTION", "users"),
		ReminderJobsCollection: utils.GetEnvAsString("REMINDER_JOBS_COLLECTION", "reminder_jobs"),
	}
}

// ClientOptions translates the config into driver options.
func (c DatabaseConfig) ClientOptions() *options.ClientOptions {
	return options.Client().
		ApplyURI(c.URI).
		SetMaxPoolSize(c.MaxPoolSize).
		SetMinPoolSize(c.MinPoolSize).
		SetMaxConnIdleTime(c.MaxConnIdleTime).
		SetRetryWrites(c.RetryWrites)
}
