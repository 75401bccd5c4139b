package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/filestore/internal/flagx"
)

var knownFlags = []string{
	"-a", "-d", "-s", "-t", "-r",
	"-storage", "-f", "-u", "-p", "-b", "-g", "-e",
	"-cache", "-redis", "-ttl",
	"-max-upload", "-l",
}

// ValueFlags lists every flag that consumes a value, including the JSON
// config flags, so commands can pick positional arguments out of os.Args.
func ValueFlags() []string {
	return append([]string{"-c", "-config", "--config"}, knownFlags...)
}

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags:
//
//	-a string        HTTP bind address (e.g., ":8080")
//	-d string        PostgreSQL DSN
//	-s string        JWT HMAC secret key
//	-t int           access token validity, minutes
//	-r int           refresh token validity, minutes
//	-storage string  storage backend: fs or s3
//	-f string        files root directory (fs backend)
//	-u/-p/-b/-g/-e   S3 user, password, bucket, region, endpoint
//	-cache string    cache backend: redis or memory
//	-redis string    redis address
//	-ttl duration    default cache TTL
//	-max-upload int  upload size cap in bytes
//	-l string        log level
//
// os.Args is filtered with flagx.FilterArgs first so the -c/-config flag
// consumed by parseJson does not trip this flag set.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], knownFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	accessTokenValidityDuration := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access_token_validity_duration (in minutes)")
	refreshTokenValidityDuration := fs.Int("r", int(config.RefreshTokenValidityDuration.Minutes()), "refresh_token_validity_duration (in minutes)")

	fs.StringVar(&config.StorageBackend, "storage", config.StorageBackend, "storage backend (fs or s3)")
	fs.StringVar(&config.FilesRoot, "f", config.FilesRoot, "files root directory")
	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 root bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 root region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	fs.StringVar(&config.CacheBackend, "cache", config.CacheBackend, "cache backend (redis or memory)")
	fs.StringVar(&config.RedisAddr, "redis", config.RedisAddr, "redis address")
	fs.DurationVar(&config.CacheTTL, "ttl", config.CacheTTL, "default cache ttl")

	fs.Int64Var(&config.MaxUploadSize, "max-upload", config.MaxUploadSize, "max upload size in bytes")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AccessTokenValidityDuration = time.Duration(*accessTokenValidityDuration) * time.Minute
	config.RefreshTokenValidityDuration = time.Duration(*refreshTokenValidityDuration) * time.Minute
}
