// Package flags parses the command-line flags shared by the demo binaries.
package flags

import "flag"

// CfgPathFlag is the path to the TOML configuration file.
var CfgPathFlag string

const defaultConfigFilePath = "./config.toml"

func init() {
	flag.StringVar(&CfgPathFlag, "config", defaultConfigFilePath, "path to config file")
	flag.Parse()
}
