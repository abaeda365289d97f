package config

// Environment constants
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
	EnvTest        = "test"
)

// IsProductionLike reports whether env demands production-grade configuration.
func IsProductionLike(env string) bool {
	return env == EnvStaging || env == EnvProduction
}

// IsDevelopment reports whether env is a local development environment.
func IsDevelopment(env string) bool {
	return env == EnvDevelopment || env == ""
}
