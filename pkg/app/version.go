package app

// Version is overridden at build time with -ldflags "-X .../pkg/app.Version=v1.2.3".
var Version = "dev"

// AppVersion is the version reported at startup and by the CLI.
func AppVersion() string {
	return Version
}
