package config

import (
	"time"
)

type Configuration struct {
	ModelPath      string    `json:"modelPath"`
	Threshold      int       `json:"threshold,omitempty"`
	InputDevice    string    `json:"inputDevice,omitempty"`
	OutputDevice   string    `json:"outputDevice,omitempty"`
	RecordDuration Duration  `json:"recordDuration,omitempty"`
	VADEnabled     bool      `json:"vadEnabled,omitempty"`
	VADModelPath   string    `json:"vadModelPath,omitempty"`
	MaxUploadBytes int64     `json:"maxUploadBytes,omitempty"`
	FraudLog       FraudLog  `json:"fraudLog,omitempty"`
	NATS           NATS      `json:"nats,omitempty"`
	Telephony      Telephony `json:"telephony,omitempty"`
}

// FraudLog selects where analyzed calls are recorded.
type FraudLog struct {
	Backend       string `json:"backend,omitempty"` // memory, badger or redis
	MaxEntries    int    `json:"maxEntries,omitempty"`
	BadgerDir     string `json:"badgerDir,omitempty"`
	RedisAddress  string `json:"redisAddress,omitempty"`
	RedisPassword string `json:"redisPassword,omitempty"`
	RedisDB       int    `json:"redisDB,omitempty"`
	RedisKey      string `json:"redisKey,omitempty"`
}

type NATS struct {
	URL     string `json:"url,omitempty"`
	Subject string `json:"subject,omitempty"`
}

type Telephony struct {
	AccountSID      string   `json:"accountSID,omitempty"`
	AuthToken       string   `json:"authToken,omitempty"`
	DownloadTimeout Duration `json:"downloadTimeout,omitempty"`
	DownloadRetries uint64   `json:"downloadRetries,omitempty"`
}

// Default returns the configuration used when no config file exists.
func Default() Configuration {
	return Configuration{
		ModelPath:      "/var/lib/voicetrust/model.json",
		Threshold:      50,
		RecordDuration: Duration(3 * time.Second),
		MaxUploadBytes: 20 << 20,
		FraudLog: FraudLog{
			Backend:    "memory",
			MaxEntries: 1000,
			RedisKey:   "voicetrust:fraud-logs",
		},
		NATS: NATS{
			Subject: "voicetrust.fraud",
		},
		Telephony: Telephony{
			DownloadTimeout: Duration(30 * time.Second),
			DownloadRetries: 5,
		},
	}
}
