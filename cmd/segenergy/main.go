package main

import (
	"github.com/MeKo-Tech/segenergy/cmd/segenergy/cmd"
	"github.com/MeKo-Tech/segenergy/internal/version"
)

var (
	buildVersion = "dev"
	buildCommit  = "unknown"
	buildDate    = "unknown"
)

func main() {
	version.Version, version.GitCommit, version.BuildDate = buildVersion, buildCommit, buildDate
	cmd.Execute()
}
