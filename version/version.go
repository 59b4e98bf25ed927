// Package version holds the build version, overridden at link time with
// -ldflags "-X github.com/qaartru2266-jpg/hxc143/version.Version=v1.2.3".
package version

// Version is the current version of bin2cc.
var Version = "dev"
