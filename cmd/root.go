package cmd

import (
	"io"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/autobrr/linkdupe/pkg/config"
	"github.com/autobrr/linkdupe/pkg/logger"
)

var (
	// Global flags
	FlagLogLevel     = 0
	FlagConfigFile   = "config.yaml"
	FlagConfigFolder = config.GetDefaultConfigDirectory("linkdupe", FlagConfigFile)
	FlagLogFile      = "activity.log"
	FlagDryRun       bool

	// Global vars
	log         *logrus.Entry
	initialized bool
)

func initCore(console io.Writer, showAppInfo bool) {
	// Set core variables
	if FlagConfigFile == "config.yaml" {
		FlagConfigFile = filepath.Join(FlagConfigFolder, "config.yaml")
	}
	if FlagLogFile == "activity.log" {
		FlagLogFile = filepath.Join(FlagConfigFolder, "activity.log")
	}

	// Init Logging
	if err := logger.Init(logger.Config{
		Verbosity:  FlagLogLevel,
		File:       FlagLogFile,
		MaxSizeMB:  5,
		MaxBackups: 10,
		Console:    console,
	}); err != nil {
		logger.GetLogger("app").WithError(err).Warn("Failed initializing file logging, logging to console only")
	}

	log = logger.GetLogger("app")

	// Init Config
	if err := config.Init(FlagConfigFile); err != nil {
		log.WithError(err).Fatal("Failed to initialize config")
	}

	// Show App Info
	if showAppInfo {
		showUsing()
	}
}

func showUsing() {
	log.Infof("Using %s = %q", "CONFIG", FlagConfigFile)
	log.Infof("Using %s = %q", "LOG", FlagLogFile)
	log.Infof("Using %s = %d", "VERBOSITY", FlagLogLevel)
	log.Infof("Using %s = %t", "DRY_RUN", FlagDryRun || config.Config.DryRun)
}
