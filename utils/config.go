package utils

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Settings struct {
	ARIURL         string
	ARIWSURL       string
	ARIUsername    string
	ARIPassword    string
	ARIApplication string

	AMIHost          string
	AMIUser          string
	AMIPass          string
	AMIActionTimeout time.Duration

	RedisAddr              string
	RedisPassword          string
	RedisConferenceChannel string

	KafkaServers         string
	KafkaConferenceTopic string
}

/*
Config func to get env value from key ---
*/
func Config(key string) string {
	// load .env file
	loadDotEnv := os.Getenv("USE_DOTENV")
	if loadDotEnv != "off" {
		err := godotenv.Load(".env")
		if err != nil {
			fmt.Print("Error loading .env file")
		}
	}
	return os.Getenv(key)
}

func configOr(key string, fallback string) string {
	if value := Config(key); value != "" {
		return value
	}
	return fallback
}

func LoadSettings() *Settings {
	timeout := 10 * time.Second
	if value := Config("AMI_ACTION_TIMEOUT"); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
			timeout = time.Duration(seconds) * time.Second
		} else if parsed, err := time.ParseDuration(value); err == nil && parsed > 0 {
			timeout = parsed
		}
	}

	return &Settings{
		ARIURL:                 Config("ARI_URL"),
		ARIWSURL:               Config("ARI_WSURL"),
		ARIUsername:            Config("ARI_USERNAME"),
		ARIPassword:            Config("ARI_PASSWORD"),
		ARIApplication:         configOr("ARI_APPLICATION", "callcontrol"),
		AMIHost:                Config("AMI_HOST"),
		AMIUser:                Config("AMI_USER"),
		AMIPass:                Config("AMI_PASS"),
		AMIActionTimeout:       timeout,
		RedisAddr:              Config("REDIS_ADDR"),
		RedisPassword:          Config("REDIS_PASSWORD"),
		RedisConferenceChannel: configOr("REDIS_CONFERENCE_CHANNEL", "conferences"),
		KafkaServers:           Config("KAFKA_SERVER_ENDPOINTS"),
		KafkaConferenceTopic:   configOr("KAFKA_CONFERENCE_TOPIC", "conferences")}
}
