package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/f-sync/igsync/internal/analyzer"
	"github.com/f-sync/igsync/internal/server"
)

const (
	commandUse                    = "server"
	commandShortDescription       = "Serve the Instagram unfollowers analyzer over HTTP"
	envPrefix                     = "IGSYNC_SERVER"
	flagHostName                  = "host"
	flagHostDescription           = "Host interface for the HTTP server"
	flagPortName                  = "port"
	flagPortDescription           = "Port for the HTTP server"
	flagMaxUploadBytesName        = "max-upload-bytes"
	flagMaxUploadBytesDescription = "Maximum size of one analyze request body in bytes"
	flagRateLimitName             = "rate-limit"
	flagRateLimitDescription      = "Analyze requests per second allowed per client"
	flagRateBurstName             = "rate-burst"
	flagRateBurstDescription      = "Analyze request burst allowed per client"
	flagSessionIdleTimeoutName    = "session-idle-timeout"
	flagSessionIdleTimeoutDesc    = "Idle time after which an analyzer session is discarded"
	flagDebugName                 = "debug"
	flagDebugDescription          = "Enable development logging"
	defaultHost                   = "127.0.0.1"
	defaultPort                   = 8080
	shutdownTimeout               = 10 * time.Second
	readHeaderTimeout             = 10 * time.Second
	errMessageLoggerCreate        = "create logger"
	errMessageRouterCreate        = "create router"
	errMessageListenAndServe      = "listen and serve"
	errMessageShutdown            = "shutdown"
	logMessageStartingServer      = "starting HTTP server"
	logMessageServerStopped       = "server stopped"
	logMessageListenError         = "server listen failure"
	logMessageShutdownRequested   = "shutdown requested"
	logFieldAddress               = "address"
	logFieldMaxUploadBytes        = "max_upload_bytes"
	logFieldRateLimit             = "rate_limit"
	logFieldRateBurst             = "rate_burst"
)

func main() {
	cobra.CheckErr(newServerCommand().Execute())
}

func newServerCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   commandUse,
		Short: commandShortDescription,
		RunE:  runServerCommand,
	}

	command.Flags().String(flagHostName, defaultHost, flagHostDescription)
	command.Flags().Int(flagPortName, defaultPort, flagPortDescription)
	command.Flags().Int64(flagMaxUploadBytesName, server.DefaultMaxUploadBytes, flagMaxUploadBytesDescription)
	command.Flags().Float64(flagRateLimitName, server.DefaultRateLimit, flagRateLimitDescription)
	command.Flags().Int(flagRateBurstName, server.DefaultRateBurst, flagRateBurstDescription)
	command.Flags().Duration(flagSessionIdleTimeoutName, server.DefaultSessionIdleTimeout, flagSessionIdleTimeoutDesc)
	command.Flags().Bool(flagDebugName, false, flagDebugDescription)

	for _, flagName := range []string{flagHostName, flagPortName, flagMaxUploadBytesName, flagRateLimitName, flagRateBurstName, flagSessionIdleTimeoutName, flagDebugName} {
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

func runServerCommand(*cobra.Command, []string) error {
	logger, err := newLogger(viper.GetBool(flagDebugName))
	if err != nil {
		return fmt.Errorf("%s: %w", errMessageLoggerCreate, err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	routerConfiguration := server.RouterConfig{
		Orchestrator:       analyzer.NewOrchestrator(analyzer.Config{Logger: logger}),
		Logger:             logger,
		MaxUploadBytes:     viper.GetInt64(flagMaxUploadBytesName),
		RateLimit:          viper.GetFloat64(flagRateLimitName),
		RateBurst:          viper.GetInt(flagRateBurstName),
		SessionIdleTimeout: viper.GetDuration(flagSessionIdleTimeoutName),
	}
	router, err := server.NewRouter(routerConfiguration)
	if err != nil {
		return fmt.Errorf("%s: %w", errMessageRouterCreate, err)
	}

	host := viper.GetString(flagHostName)
	port := viper.GetInt(flagPortName)
	address := fmt.Sprintf("%s:%d", host, port)
	logger.Info(logMessageStartingServer,
		zap.String(logFieldAddress, address),
		zap.Int64(logFieldMaxUploadBytes, routerConfiguration.MaxUploadBytes),
		zap.Float64(logFieldRateLimit, routerConfiguration.RateLimit),
		zap.Int(logFieldRateBurst, routerConfiguration.RateBurst),
	)

	httpServer := &http.Server{Addr: address, Handler: router, ReadHeaderTimeout: readHeaderTimeout}

	signalContext, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	listenErrors := make(chan error, 1)
	go func() {
		listenErrors <- httpServer.ListenAndServe()
	}()

	select {
	case listenErr := <-listenErrors:
		if listenErr != nil && !errors.Is(listenErr, http.ErrServerClosed) {
			logger.Error(logMessageListenError, zap.Error(listenErr))
			return fmt.Errorf("%s: %w", errMessageListenAndServe, listenErr)
		}
	case <-signalContext.Done():
		logger.Info(logMessageShutdownRequested)
		shutdownContext, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownContext); err != nil {
			return fmt.Errorf("%s: %w", errMessageShutdown, err)
		}
	}

	logger.Info(logMessageServerStopped)
	return nil
}
