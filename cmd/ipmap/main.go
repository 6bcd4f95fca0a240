package main

import (
	"net/http"
	"os"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/AwareRO/ipmap/config"
	"github.com/AwareRO/ipmap/device"
	"github.com/AwareRO/ipmap/geoip"
	ipmaphttp "github.com/AwareRO/ipmap/http"
	"github.com/AwareRO/ipmap/http/handlers"
	"github.com/AwareRO/ipmap/metrics"
	"github.com/AwareRO/ipmap/widget"
)

const version = "0.1.0"

var (
	app = kingpin.New("ipmap", "Locate IP addresses on a map.")

	debug = app.Flag("debug", "Run in debug mode.").
		Short('d').
		Envar("IPMAP_DEBUG").
		Bool()
	configPath = app.Flag("config", "Path to a yaml, toml or env config file.").
			Short('c').
			Envar("IPMAP_CONFIG").
			String()
)

func init() {
	app.Version(version)
	app.HelpFlag.Short('h')
}

func setupLogging(conf *config.Config) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(conf.LogLevel())

	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	if conf.Log.Pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}

func makeWidget(conf *config.Config, lookups *metrics.Lookups) (*handlers.Widget, error) {
	find, err := geoip.NewFinder(conf.Provider.Name, conf.Provider.APIKey,
		geoip.WithHTTPClient(&http.Client{Timeout: conf.Provider.Timeout}),
		geoip.WithBaseURL(conf.Provider.URL))
	if err != nil {
		return nil, err
	}

	opts := []handlers.WidgetOption{
		handlers.WithLookups(lookups),
		handlers.WithAllowedOrigins(conf.Widget.AllowedOrigins),
		handlers.WithControllerOptions(
			widget.WithClockInterval(conf.Widget.ClockInterval),
			widget.WithDeviceTimeout(conf.Widget.DeviceTimeout),
		),
	}

	if conf.Widget.HasStaticPosition() {
		lat, lng, err := conf.Widget.Position()
		if err != nil {
			return nil, err
		}

		opts = append(opts, handlers.WithPositioner(device.NewStatic(lat, lng, conf.Widget.StaticTimezone)))
	}

	return handlers.NewWidget(find, opts...), nil
}

func main() {
	app.UsageTemplate(kingpin.DefaultUsageTemplate + "\nEnvironment:\n" + config.Usage() + "\n")
	kingpin.MustParse(app.Parse(os.Args[1:]))

	conf, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Cannot load config")
	}

	setupLogging(conf)

	collector := metrics.NewDefaultCollector()
	lookups := metrics.NewLookups(collector.WithPrefix("ipmap"))

	w, err := makeWidget(conf, lookups)
	if err != nil {
		log.Fatal().Err(err).Msg("Cannot create widget")
	}

	log.Info().
		Str("provider", conf.Provider.Name).
		Bool("static_position", conf.Widget.HasStaticPosition()).
		Msg("Starting ipmap")

	router := ipmaphttp.NewRouter(w, collector, conf.Metrics)
	ipmaphttp.RunServerWithMetrics(&conf.HTTP, router, collector)
}
