package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/stellar/go-stellar-sdk/support/log"

	"github.com/photoproof/photoproof-backend/cmd"
	cmdUtils "github.com/photoproof/photoproof-backend/cmd/utils"
)

// Version is the official version of this application.
const Version = "1.0.0"

// GitCommit is populated at build time by
// go build -ldflags "-X main.GitCommit=$GIT_COMMIT"
var GitCommit string

func main() {
	preConfigureLogger()

	envFilePath, err := cmdUtils.LoadEnvFile(os.Args[1:])
	if err != nil {
		log.Fatalf("error loading env file: %s", err.Error())
	}
	if envFilePath != "" {
		log.Debugf("Loaded environment from %s", envFilePath)
	}

	rootCmd := cmd.SetupCLI(Version, GitCommit)
	if err = rootCmd.Execute(); err != nil {
		log.Ctx(rootCmd.Context()).Fatalf("error executing: %s", err.Error())
	}
}

// preConfigureLogger will set the log level to Trace, so logs works from the
// start. This will eventually be overwritten in cmd/root.go
func preConfigureLogger() {
	log.DefaultLogger = log.New()
	log.DefaultLogger.SetLevel(logrus.TraceLevel)
}
