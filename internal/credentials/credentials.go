// Package credentials resolves the HTTP Basic credentials used to download builds.
package credentials

import (
	"os"
)

// Environment variables consulted by FromEnv.
const (
	EnvUsername = "EZBOOT_FLASH_USER"
	EnvPassword = "EZBOOT_FLASH_PASS"
)

// Credentials contains a username and password for the build server.
type Credentials struct {
	Username string
	Password string
	Source   string
}

// Get returns the first complete set of credentials.
//
// The lookup order is:
//  1. The given username and password (flags or config file)
//  2. Environment variables (see FromEnv)
//
// Partial values from the first source are kept when neither source is complete, so that a prompt only
// needs to ask for what is missing.
func Get(username, password string) Credentials {
	c := Credentials{Username: username, Password: password, Source: "options"}
	if c.IsValid() {
		return c
	}

	if env := FromEnv(); env.IsValid() {
		return env
	}

	return c
}

// FromEnv reads the credentials from the user environment.
func FromEnv() Credentials {
	return Credentials{
		Username: os.Getenv(EnvUsername),
		Password: os.Getenv(EnvPassword),
		Source:   "environment variables",
	}
}

// IsEmpty checks whether both the username and the password are empty.
func (c *Credentials) IsEmpty() bool {
	return c.Username == "" && c.Password == ""
}

// IsValid reports whether both the username and the password are set.
func (c *Credentials) IsValid() bool {
	return c.Username != "" && c.Password != ""
}
