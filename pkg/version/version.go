package version

// Version is the application version. Overridden at build time via -ldflags.
var Version = "v0.1.0"
