package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds everything read from the environment, matching the
// docker-compose variable names.
type Config struct {
	AppEnv        string
	DBHost        string
	DBPort        int
	DBUser        string
	DBPassword    string
	DBName        string
	RedisAddr     string
	RedisPassword string
	LogPath       string
	KeyPath       string
	CertPath      string
	WebhookSecret string
	GateConfig    string        // path to the gate definition yaml
	JobTimeout    time.Duration // safety net per job, 0 disables
	RetentionDays int           // run history kept by the janitor
	Engine        string // docker or local
	DockerHost    string
	Workdir       string // project root the gates run against
}

var config Config

func GetConfig() Config {
	return config
}

func InitConf() {
	dbPort, _ := strconv.Atoi(getEnv("DB_PORT", "3306"))
	retention, _ := strconv.Atoi(getEnv("RETENTION_DAYS", "90"))
	jobTimeout, err := time.ParseDuration(getEnv("JOB_TIMEOUT", "30m"))
	if err != nil {
		jobTimeout = 30 * time.Minute
	}

	config = Config{
		AppEnv:        getEnv("APP_ENV", "development"),
		DBHost:        getEnv("DB_HOST", "localhost"),
		DBPort:        dbPort,
		DBUser:        getEnv("DB_USER", ""),
		DBPassword:    getEnv("DB_PASSWORD", ""),
		DBName:        getEnv("DB_NAME", "gatekeep"),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		LogPath:       getEnv("LOG_PATH", "./logs/gatekeep.log"),
		KeyPath:       getEnv("KEY_PATH", ""),
		CertPath:      getEnv("CERT_PATH", ""),
		WebhookSecret: getEnv("WEBHOOK_SECRET", ""),
		GateConfig:    getEnv("GATE_CONFIG", "./configs/gatekeep.yaml"),
		JobTimeout:    jobTimeout,
		RetentionDays: retention,
		Engine:        getEnv("GATE_ENGINE", "docker"),
		DockerHost:    getEnv("DOCKER_HOST", "unix:///var/run/docker.sock"),
		Workdir:       getEnv("GATE_WORKDIR", "."),
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
