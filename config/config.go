package config

import (
	"errors"
	"flag"
	"net"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Addr           string
	DBUrl          string
	TokenSecret    string
	TokenTTL       time.Duration
	TickInterval   time.Duration
	ResponseWindow time.Duration
	NotifyURL      string
	Debug          bool
}

func ParseFlags() (cfg Config, err error) {
	var host string
	flag.StringVar(&host, "host", "0.0.0.0", "listen host name (default 0.0.0.0)")
	var port uint
	flag.UintVar(&port, "port", 8080, "listen port number (default 8080)")
	flag.StringVar(&cfg.DBUrl, "db-url", "checkin.sqlite", "path to SQLite3 DB file (default checkin.sqlite)")
	flag.StringVar(&cfg.TokenSecret, "token-secret", "", "secret key for token encryption and decryption")
	var ttl uint
	flag.UintVar(&ttl, "token-ttl", 3600, "token TTL in seconds (default 3600)")
	flag.DurationVar(&cfg.TickInterval, "tick", time.Minute, "dispatcher tick interval (default 1m)")
	flag.DurationVar(&cfg.ResponseWindow, "response-window", 24*time.Hour,
		"time caregivers have to submit once a slot opens (default 24h)")
	flag.StringVar(&cfg.NotifyURL, "notify-url", "", "webhook URL for assignment reminders (log only when empty)")
	flag.BoolVar(&cfg.Debug, "debug", false, "log at DEBUG level")
	flag.Parse()

	cfg.Addr = net.JoinHostPort(host, strconv.Itoa(int(port)))
	cfg.TokenTTL = time.Duration(ttl) * time.Second

	if cfg.TokenSecret == "" {
		err = errors.New("missing parameter -token-secret")
	}

	return
}

func (cfg Config) Url() string {
	url := cfg.Addr
	if strings.HasPrefix(url, "0.0.0.0") {
		url = "localhost" + strings.TrimPrefix(url, "0.0.0.0")
	}
	return "http://" + url
}
