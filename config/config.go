package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/ssm"
	"github.com/joho/godotenv"
)

type Config struct {
	// Institute REST API
	APIBaseURL     string
	APITimeout     time.Duration
	APIReadRetries int

	// Database (audit trail)
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string

	// AWS S3
	AWSRegion          string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	S3BucketName       string

	// Server
	Port   string
	AppEnv string

	// Documents
	DocumentStore     string // s3, memory
	MaxFileSize       int64
	AllowedExtensions string

	// Logging
	LogLevel       string
	LogFile        string
	LogArchiveCron string
	LogArchiveDays int

	// LINE
	LineChannelSecret  string
	LineChannelToken   string
	LinePaymentGroupID string

	// Listing & submission
	DefaultPageSize int
	SubmitLockTTL   time.Duration

	SkipMigrate bool
}

func (c *Config) GetDSN() string {
	return c.DBUser + ":" + c.DBPassword + "@tcp(" + c.DBHost + ":" + c.DBPort + ")/" + c.DBName + "?charset=utf8mb4&parseTime=True&loc=Local"
}

// AllowedExtensionList splits AllowedExtensions on commas
func (c *Config) AllowedExtensionList() []string {
	var out []string
	for _, e := range strings.Split(c.AllowedExtensions, ",") {
		if e = strings.TrimSpace(e); e != "" {
			out = append(out, e)
		}
	}
	return out
}

var AppConfig *Config

func LoadConfig() {
	useSSM := getEnv("USE_SSM", "false") == "true"

	var paramMap map[string]string

	// Stage & base path for SSM (allows multi-env without code changes)
	basePath := getEnv("SSM_BASE_PATH", "/eduadmin")
	stage := getEnv("STAGE", getEnv("APP_ENV", "production"))
	basePath = strings.TrimRight(basePath, "/")
	prefix := basePath + "/" + stage

	if useSSM {
		sess, err := session.NewSession(&aws.Config{Region: aws.String(getEnv("AWS_REGION", "ap-south-1"))})
		if err != nil {
			log.Fatal("Failed to create AWS session:", err)
		}
		log.Printf("Using AWS SSM Parameter Store (prefix=%s)", prefix)
		paramMap = fetchSSMParameters(ssm.New(sess), prefix)
	} else {
		if err := godotenv.Load(); err != nil {
			log.Println("Warning: .env file not found, using environment variables")
		}
	}

	// Helper accessor respecting map / env fallback
	getVal := func(key, def string) string {
		if useSSM {
			if v, ok := paramMap[strings.ToUpper(key)]; ok && v != "" {
				return v
			}
		}
		return getEnv(strings.ToUpper(key), def)
	}

	cfg, err := build(getVal)
	if err != nil {
		log.Fatal(err)
	}
	AppConfig = cfg

	validateConfig(AppConfig, useSSM)
}

// build assembles a Config from a key lookup. Split out of LoadConfig so
// tests can feed a map instead of the process environment.
func build(getVal func(key, def string) string) (*Config, error) {
	apiTimeout, err := parseDuration(getVal("API_TIMEOUT", "15s"))
	if err != nil {
		return nil, configError("API_TIMEOUT", err)
	}
	lockTTL, err := parseDuration(getVal("SUBMIT_LOCK_TTL", "30s"))
	if err != nil {
		return nil, configError("SUBMIT_LOCK_TTL", err)
	}
	maxFileSize, err := strconv.ParseInt(getVal("MAX_FILE_SIZE", "10485760"), 10, 64)
	if err != nil {
		return nil, configError("MAX_FILE_SIZE", err)
	}
	retries, err := strconv.Atoi(getVal("API_READ_RETRIES", "2"))
	if err != nil || retries < 0 {
		return nil, configError("API_READ_RETRIES", err)
	}
	pageSize, err := strconv.Atoi(getVal("DEFAULT_PAGE_SIZE", "25"))
	if err != nil || pageSize < 1 {
		return nil, configError("DEFAULT_PAGE_SIZE", err)
	}
	archiveDays, err := strconv.Atoi(getVal("LOG_ARCHIVE_DAYS", "30"))
	if err != nil {
		return nil, configError("LOG_ARCHIVE_DAYS", err)
	}

	return &Config{
		APIBaseURL:     strings.TrimRight(getVal("API_BASE_URL", "http://localhost:5000/api"), "/"),
		APITimeout:     apiTimeout,
		APIReadRetries: retries,

		DBHost:     getVal("DB_HOST", "localhost"),
		DBPort:     getVal("DB_PORT", "3306"),
		DBUser:     getVal("DB_USER", "root"),
		DBPassword: getVal("DB_PASSWORD", ""),
		DBName:     getVal("DB_NAME", "eduadmin"),

		RedisHost:     getVal("REDIS_HOST", "localhost"),
		RedisPort:     getVal("REDIS_PORT", "6379"),
		RedisPassword: getVal("REDIS_PASSWORD", ""),

		AWSRegion:          getVal("AWS_REGION", "ap-south-1"),
		AWSAccessKeyID:     getVal("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey: getVal("AWS_SECRET_ACCESS_KEY", ""),
		S3BucketName:       getVal("S3_BUCKET_NAME", "eduadmin-documents"),

		Port:   getVal("PORT", "3000"),
		AppEnv: getVal("APP_ENV", "development"),

		DocumentStore:     strings.ToLower(getVal("DOCUMENT_STORE", "memory")),
		MaxFileSize:       maxFileSize,
		AllowedExtensions: getVal("ALLOWED_EXTENSIONS", "jpg,jpeg,png,pdf,doc,docx"),

		LogLevel:       getVal("LOG_LEVEL", "info"),
		LogFile:        getVal("LOG_FILE", "logs/app.log"),
		LogArchiveCron: getVal("LOG_ARCHIVE_CRON", "@hourly"),
		LogArchiveDays: archiveDays,

		LineChannelSecret:  getVal("LINE_CHANNEL_SECRET", ""),
		LineChannelToken:   getVal("LINE_CHANNEL_ACCESS_TOKEN", ""),
		LinePaymentGroupID: getVal("LINE_PAYMENT_GROUP_ID", ""),

		DefaultPageSize: pageSize,
		SubmitLockTTL:   lockTTL,

		SkipMigrate: strings.ToLower(getVal("SKIP_MIGRATE", "false")) == "true",
	}, nil
}

// parseDuration accepts Go durations plus the d/w shorthand
func parseDuration(raw string) (time.Duration, error) {
	d, err := time.ParseDuration(raw)
	if err == nil {
		return d, nil
	}
	s := strings.TrimSpace(strings.ToLower(raw))
	if len(s) > 1 {
		if n, err2 := strconv.Atoi(s[:len(s)-1]); err2 == nil {
			switch s[len(s)-1] {
			case 'd':
				return time.Duration(n) * 24 * time.Hour, nil
			case 'w':
				return time.Duration(n*7) * 24 * time.Hour, nil
			}
		}
	}
	return 0, err
}

type invalidValue struct {
	key string
	err error
}

func (e *invalidValue) Error() string {
	if e.err == nil {
		return "invalid " + e.key
	}
	return "invalid " + e.key + ": " + e.err.Error()
}

func configError(key string, err error) error {
	return &invalidValue{key: key, err: err}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// fetchSSMParameters reads all parameters under prefix and returns map with UPPERCASE keys.
func fetchSSMParameters(client *ssm.SSM, prefix string) map[string]string {
	out := make(map[string]string)
	next := aws.String("")
	for {
		in := &ssm.GetParametersByPathInput{
			Path:           aws.String(prefix),
			WithDecryption: aws.Bool(true),
			Recursive:      aws.Bool(true),
		}
		if *next != "" {
			in.NextToken = next
		}
		resp, err := client.GetParametersByPath(in)
		if err != nil {
			log.Printf("Warning: unable to fetch SSM parameters for prefix %s: %v", prefix, err)
			break
		}
		for _, p := range resp.Parameters {
			if p.Name == nil || p.Value == nil {
				continue
			}
			name := *p.Name
			key := name
			if idx := strings.LastIndex(name, "/"); idx >= 0 {
				key = name[idx+1:]
			}
			if key == "" {
				continue
			}
			out[strings.ToUpper(key)] = *p.Value
		}
		if resp.NextToken == nil || *resp.NextToken == "" {
			break
		}
		next = resp.NextToken
	}
	return out
}

func validateConfig(c *Config, usedSSM bool) {
	// Only enforce stricter rules in production
	if strings.ToLower(c.AppEnv) != "production" {
		return
	}
	required := map[string]string{
		"API_BASE_URL": c.APIBaseURL,
		"DB_PASSWORD":  c.DBPassword,
	}
	for k, v := range required {
		if strings.TrimSpace(v) == "" {
			log.Fatalf("Missing required setting %s in production (SSM=%v)", k, usedSSM)
		}
	}
	if c.DocumentStore == "s3" && c.S3BucketName == "" {
		log.Fatal("DOCUMENT_STORE=s3 requires S3_BUCKET_NAME")
	}
}
