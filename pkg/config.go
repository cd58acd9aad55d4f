package giga

import (
	"time"

	"github.com/jinzhu/configor"
)

type Config struct {
	Gigaspend struct {
		// account identity: keys the lock table and signs envelopes
		AccountID  string `default:"" env:"GIGA_ACCOUNT"`
		WalletFile string `default:"wallet.json" env:"GIGA_WALLET"`
		TxVersion  int    `default:"1"`
	}

	// remote settlement service that verifies and settles envelopes
	Settlement struct {
		URL         string `default:"http://localhost:8091" env:"GIGA_SETTLEMENT_URL"`
		GroupID     string `default:"0"`
		TimeoutSecs int    `default:"30"`
	}

	Locks LockConfig

	Store struct {
		DBFile      string `default:"gigaspend.db"`
		PostgresDSN string // if set, used instead of DBFile
	}

	WebAPI struct {
		Bind string `default:"localhost"`
		Port string `default:"8092"`
	}

	// TXCer status notifications pushed by the settlement service
	Notify struct {
		ZMQAddress string
		Topic      string `default:"txcer"`
	}

	Log struct {
		Path  string // rotating log file; stderr when empty
		Debug bool
	}

	Loggers map[string]LoggerConfig
	MQTT    MQTTConfig
}

type LockConfig struct {
	DraftTimeoutSecs     int `default:"30"`
	SubmittedTimeoutSecs int `default:"86400"`
	SweepIntervalSecs    int `default:"5"`
}

func (c LockConfig) DraftTimeout() time.Duration {
	return time.Duration(c.DraftTimeoutSecs) * time.Second
}

func (c LockConfig) SubmittedTimeout() time.Duration {
	return time.Duration(c.SubmittedTimeoutSecs) * time.Second
}

func (c LockConfig) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalSecs) * time.Second
}

type LoggerConfig struct {
	Path  string
	Types []string
}

type MQTTConfig struct {
	Address  string
	ClientID string
	Username string
	Password string
	Queues   map[string]MQTTQueueConfig
}

type MQTTQueueConfig struct {
	TopicFilter string
	Types       []string
}

func LoadConfig(confPath string) (Config, error) {
	c := Config{}
	var files []string
	if confPath != "" {
		files = append(files, confPath)
	}
	err := configor.Load(&c, files...)
	return c, err
}

func TestConfig() Config {
	c := Config{}
	c.Gigaspend.AccountID = "acct-test"
	c.Gigaspend.TxVersion = 1
	c.Settlement.GroupID = "0"
	c.Settlement.TimeoutSecs = 5
	c.Locks = LockConfig{DraftTimeoutSecs: 30, SubmittedTimeoutSecs: 86400, SweepIntervalSecs: 5}
	c.Store.DBFile = ":memory:"
	c.WebAPI.Bind = "localhost"
	c.WebAPI.Port = "0"
	c.Notify.Topic = "txcer"
	return c
}
