package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	adactor "github.com/berfenger/purifier2mqtt/internal/adapter/actor"
	"github.com/berfenger/purifier2mqtt/internal/config"
	"github.com/berfenger/purifier2mqtt/internal/core/actor"
	"github.com/berfenger/purifier2mqtt/internal/core/domain"
	"github.com/berfenger/purifier2mqtt/internal/server"
	"github.com/berfenger/purifier2mqtt/internal/util/actorutil"
	"github.com/berfenger/purifier2mqtt/pkg/miio"

	pactor "github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func gracefulShutdown(apiServer *http.Server, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Listen for the interrupt signal.
	<-ctx.Done()

	log.Println("shutting down gracefully, press Ctrl+C again to force")

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown with error: %v", err)
	}

	log.Println("Server exiting")

	// Notify the main goroutine that the shutdown is complete
	done <- true
}

func main() {

	// load and print config
	cfg, err := initConfig()
	if err != nil {
		slog.Error("config errors", "error", err)
		os.Exit(1)
	}
	safePrintConfig(*cfg)

	// zap logger
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)

	logger := zap.Must(zapCfg.Build())

	connector, err := deviceConnector(cfg)
	if err != nil {
		logger.Error("no device transport", zap.Error(err))
		os.Exit(1)
	}

	// init actor system
	as := actorutil.NewActorSystemWithZapLogger(logger)
	ctx := as.Root

	defer logger.Sync()

	props := pactor.PropsFromProducer(func() pactor.Actor {
		return actor.NewMasterOfPuppetsActor(*cfg, connector, mqttActorProvider(cfg, logger), logger)
	})
	pid, err := ctx.SpawnNamed(props, domain.ACTOR_ID_MASTER)
	if err != nil {
		return
	}

	server := server.NewServer(*cfg, ctx, pid)
	// Create a done channel to signal when the shutdown is complete
	done := make(chan bool, 1)

	// Run graceful shutdown in a separate goroutine
	go gracefulShutdown(server, done)

	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		panic(fmt.Sprintf("http server error: %s", err))
	}

	// Wait for the graceful shutdown to complete
	<-done
	log.Println("Graceful shutdown complete.")

	ctx.Stop(pid)
	as.Shutdown()
}

func initConfig() (*config.Config, error) {

	// alias PORT => PURIFIER_PORT
	if port := os.Getenv("PORT"); port != "" {
		os.Setenv("PURIFIER_PORT", port)
	}

	setConfigDefaults()

	viper.SetEnvPrefix("purifier")
	// device.address => PURIFIER_DEVICE_ADDRESS
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// if defined, try to load config from yaml file
	if cfgFile := os.Getenv("CONFIG_FILE"); cfgFile != "" {
		if _, err := os.Stat(cfgFile); err == nil {
			slog.Info("Using config", "file", cfgFile)
			viper.SetConfigFile(cfgFile)

			err = viper.ReadInConfig()
			if err != nil {
				slog.Error("Error reading config file", "error", err)
			}
		}
	}

	var cfg config.Config

	err := viper.Unmarshal(&cfg)
	if err != nil {
		return nil, err
	}

	// parse log level
	switch viper.GetString("log_level") {
	case "trace":
		cfg.LogLevel = zap.DebugLevel
	case "debug":
		cfg.LogLevel = zap.DebugLevel
	case "info":
		cfg.LogLevel = zap.InfoLevel
	case "error":
		cfg.LogLevel = zap.ErrorLevel
	case "warn":
		cfg.LogLevel = zap.WarnLevel
	case "fatal":
		cfg.LogLevel = zap.FatalLevel
	default:
		cfg.LogLevel = zap.InfoLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// deviceConnector picks the device transport. Only the in-memory simulator
// ships with the bridge.
func deviceConnector(cfg *config.Config) (miio.Connector, error) {
	if cfg.Device.Simulate {
		return &miio.SimulatedConnector{}, nil
	}
	return nil, errors.New("no miio transport available, set device.simulate to run against the simulated purifier")
}

func mqttActorProvider(cfg *config.Config, logger *zap.Logger) actor.MQTTActorProvider {
	return func(es *eventstream.EventStream) *adactor.MQTTActor {
		return adactor.NewMQTTActor(cfg, es, logger)
	}
}

func setConfigDefaults() {
	// AutomaticEnv only resolves keys viper knows about
	viper.SetDefault("device.address", "")
	viper.SetDefault("device.token", "")
	viper.SetDefault("device.name", config.DEFAULT_DEVICE_NAME)
	viper.SetDefault("device.retry_interval", config.DEFAULT_RETRY_INTERVAL)
	viper.SetDefault("device.connect_timeout", config.DEFAULT_CONNECT_TIMEOUT)
	viper.SetDefault("device.call_timeout", config.DEFAULT_CALL_TIMEOUT)
	viper.SetDefault("device.simulate", false)
	viper.SetDefault("expose.air_quality", false)
	viper.SetDefault("expose.temperature", false)
	viper.SetDefault("expose.humidity", false)
	viper.SetDefault("expose.led", false)
	viper.SetDefault("expose.buzzer", false)
	viper.SetDefault("expose.filter_level", false)
	viper.SetDefault("expose.name_air_quality", config.DEFAULT_NAME_AIR_QUALITY)
	viper.SetDefault("expose.name_temperature", config.DEFAULT_NAME_TEMPERATURE)
	viper.SetDefault("expose.name_humidity", config.DEFAULT_NAME_HUMIDITY)
	viper.SetDefault("log_level", "warn")
	viper.SetDefault("mqtt.host", "localhost")
	viper.SetDefault("mqtt.port", 1883)
	viper.SetDefault("mqtt.username", "")
	viper.SetDefault("mqtt.password", "")
	viper.SetDefault("mqtt.ha_discovery_enable", false)
	viper.SetDefault("mqtt.base_topic", "purifier")
	viper.SetDefault("mqtt.ha_discovery_topic", "homeassistant")
	viper.SetDefault("port", 8080)
	viper.SetDefault("http_log", false)
}

func safePrintConfig(cfg config.Config) {
	cfg.Device.Token = "*redacted*"
	cfg.MQTT.Username = "*redacted*"
	cfg.MQTT.Password = "*redacted*"
	slog.Info("Using", "config", cfg)
}
