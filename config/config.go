// server/config/config.go
package config

import (
	"github.com/spf13/viper"
)

// --- Sub structs mirroring the YAML layout ---

type ServerConfig struct {
	Port string `mapstructure:"port"`
}

type MongoConfig struct {
	URI    string `mapstructure:"uri"`
	DBName string `mapstructure:"dbName"`
}

type JWTConfig struct {
	Secret     string `mapstructure:"secret"`
	Expiration string `mapstructure:"expiration"`
}

// AppConfig holds marketplace-wide settings used by the QR code engine.
type AppConfig struct {
	// BaseURL is the public base of the verification site. The payload of
	// every issued code embeds BaseURL + "/verify/{batchId}".
	BaseURL string `mapstructure:"baseURL"`
	// DefaultState is used when a harvest location has no comma-separated
	// state part, e.g. "Abuja" -> {city: "Abuja", state: DefaultState}.
	DefaultState string `mapstructure:"defaultState"`
	// CodeValidityDays is the lifetime of an issued code before it expires.
	CodeValidityDays int `mapstructure:"codeValidityDays"`
}

type S3Config struct {
	Bucket           string `mapstructure:"bucket"`
	Region           string `mapstructure:"region"`
	AccessKeyID      string `mapstructure:"accessKeyID"`
	SecretAccessKey  string `mapstructure:"secretAccessKey"`
	CloudFrontDomain string `mapstructure:"cloudFrontDomain"`
}

type FabricConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	ChannelName       string `mapstructure:"channelName"`
	ChaincodeName     string `mapstructure:"chaincodeName"`
	OrgName           string `mapstructure:"orgName"`
	UserName          string `mapstructure:"userName"`
	ConnectionProfile string `mapstructure:"connectionProfile"`
	UserCertPath      string `mapstructure:"userCertPath"`
	UserKeyDir        string `mapstructure:"userKeyDir"`
}

// --- Main Config struct ---

type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Mongo  MongoConfig  `mapstructure:"mongo"`
	JWT    JWTConfig    `mapstructure:"jwt"`
	App    AppConfig    `mapstructure:"app"`
	S3     S3Config     `mapstructure:"s3"`
	Fabric FabricConfig `mapstructure:"fabric"`
}

// LoadConfig reads configuration from file and overrides it with environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.AutomaticEnv()

	viper.BindEnv("server.port", "SERVER_PORT")
	viper.BindEnv("mongo.uri", "MONGO_URI")
	viper.BindEnv("mongo.dbName", "MONGO_DBNAME")
	viper.BindEnv("jwt.secret", "JWT_SECRET")
	viper.BindEnv("jwt.expiration", "JWT_EXPIRATION")
	viper.BindEnv("app.baseURL", "APP_BASE_URL")
	viper.BindEnv("app.defaultState", "APP_DEFAULT_STATE")
	viper.BindEnv("app.codeValidityDays", "APP_CODE_VALIDITY_DAYS")
	viper.BindEnv("s3.bucket", "S3_BUCKET")
	viper.BindEnv("s3.region", "S3_REGION")
	viper.BindEnv("s3.accessKeyID", "S3_ACCESS_KEY_ID")
	viper.BindEnv("s3.secretAccessKey", "S3_SECRET_ACCESS_KEY")
	viper.BindEnv("s3.cloudFrontDomain", "S3_CLOUDFRONT_DOMAIN")
	viper.BindEnv("fabric.enabled", "FABRIC_ENABLED")

	viper.SetDefault("server.port", "8080")
	viper.SetDefault("app.baseURL", "https://agritrace.example.com")
	viper.SetDefault("app.defaultState", "Nigeria")
	viper.SetDefault("app.codeValidityDays", 365)

	// If the file is missing Viper falls back to environment variables only.
	err = viper.ReadInConfig()
	if err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return
		}
	}

	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	return
}
