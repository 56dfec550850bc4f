package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	commandUse                  = "analyze"
	commandShortDescription     = "List accounts you follow that do not follow you back"
	envPrefix                   = "IGSYNC_ANALYZE"
	flagFollowersName           = "followers"
	flagFollowersDescription    = "Path to the followers export HTML file"
	flagFollowingName           = "following"
	flagFollowingDescription    = "Path to the following export HTML file"
	flagArchiveName             = "archive"
	flagArchiveDescription      = "Path to the Instagram data export zip"
	flagFormatName              = "format"
	flagFormatDescription       = "Report format: text, json or html"
	flagOutName                 = "out"
	flagOutDescription          = "Write the report to this file instead of stdout"
	flagWatchName               = "watch"
	flagWatchDescription        = "Re-run the analysis whenever an input file changes"
	flagDebugName               = "debug"
	flagDebugDescription        = "Enable development logging"
	errMessageLoggerCreate      = "create logger"
	logMessageWatchingForChange = "watching input files; press Ctrl+C to stop"
)

func main() {
	if err := newAnalyzeCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, describeFailure(err))
		os.Exit(1)
	}
}

func newAnalyzeCommand() *cobra.Command {
	command := &cobra.Command{
		Use:           commandUse,
		Short:         commandShortDescription,
		RunE:          runAnalyzeCommand,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	command.Flags().String(flagFollowersName, "", flagFollowersDescription)
	command.Flags().String(flagFollowingName, "", flagFollowingDescription)
	command.Flags().String(flagArchiveName, "", flagArchiveDescription)
	command.Flags().String(flagFormatName, outputFormatText, flagFormatDescription)
	command.Flags().String(flagOutName, "", flagOutDescription)
	command.Flags().Bool(flagWatchName, false, flagWatchDescription)
	command.Flags().Bool(flagDebugName, false, flagDebugDescription)

	for _, flagName := range []string{flagFollowersName, flagFollowingName, flagArchiveName, flagFormatName, flagOutName, flagWatchName, flagDebugName} {
		bindFlagToViper(command, flagName)
	}

	cobra.OnInitialize(configureEnvironment)

	return command
}

func bindFlagToViper(command *cobra.Command, flagName string) {
	cobra.CheckErr(viper.BindPFlag(flagName, command.Flags().Lookup(flagName)))
}

func configureEnvironment() {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func runAnalyzeCommand(command *cobra.Command, _ []string) error {
	logger, err := newLogger(viper.GetBool(flagDebugName))
	if err != nil {
		return fmt.Errorf("%s: %w", errMessageLoggerCreate, err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	configuration := AnalyzeConfiguration{
		FollowersPath: viper.GetString(flagFollowersName),
		FollowingPath: viper.GetString(flagFollowingName),
		ArchivePath:   viper.GetString(flagArchiveName),
		Format:        viper.GetString(flagFormatName),
		OutputPath:    viper.GetString(flagOutName),
	}
	application := NewAnalyzeApplicationWithDependencies(AnalyzeDependencies{
		Logger: logger,
		Stdout: command.OutOrStdout(),
		Stderr: command.ErrOrStderr(),
	})

	executionContext, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if viper.GetBool(flagWatchName) {
		logger.Info(logMessageWatchingForChange)
		return application.Watch(executionContext, configuration)
	}
	return application.Run(executionContext, configuration)
}
