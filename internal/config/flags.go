package config

import (
	"errors"
	"flag"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// NetAddress holds structured network address data for host and port.
// It implements the flag.Value interface.
type NetAddress struct {
	Host string
	Port int
}

// int64List is a comma separated list of ids. It implements flag.Value.
type int64List []int64

func (l *int64List) String() string {
	parts := make([]string, 0, len(*l))
	for _, v := range *l {
		parts = append(parts, strconv.FormatInt(v, 10))
	}
	return strings.Join(parts, ",")
}

func (l *int64List) Set(s string) error {
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid id %q: %w", part, err)
		}
		*l = append(*l, v)
	}
	return nil
}

// ParseFlags parses all configuration flags from args.
//
// Flags:
//
//	-u user library id
//	-g comma separated group library ids
//	-k API key
//	-b API base URL
//	-api-version API version header value
//	-request-timeout request timeout (e.g., "30s", "1m")
//	-d database DSN
//	-concurrency in-flight request limit
//	-max-retries attempts per request on transient errors
//	-i sync interval (e.g., "5m")
//	-stop-on-error abort a pass on the first per-object failure
//	-download-batch keys per object request
//	-upload-batch objects per write request
//	-max-restarts download/upload rounds after precondition failures
//	-m metrics address in format [host]:[port]
//	-a reference API server address in format [host]:[port]
//	-c/-config json file path with configs
func ParseFlags(args []string) (*StructuredConfig, error) {
	var metricsAddress, serverAddress NetAddress
	var groups int64List
	var userID int64
	var apiKey, baseURL, databaseDSN, jsonConfigPath string
	var apiVersion, concurrency, maxRetries, downloadBatch, uploadBatch, maxRestarts int
	var requestTimeout, syncInterval time.Duration
	var stopOnError bool

	fs := flag.NewFlagSet("refsync", flag.ContinueOnError)
	fs.Int64Var(&userID, "u", 0, "User library id")
	fs.Var(&groups, "g", "Comma separated group library ids")
	fs.StringVar(&apiKey, "k", "", "API key")
	fs.StringVar(&baseURL, "b", "", "API base URL")
	fs.IntVar(&apiVersion, "api-version", 0, "API version")
	fs.DurationVar(&requestTimeout, "request-timeout", 0, "Request timeout (e.g., 30s, 1m)")
	fs.StringVar(&databaseDSN, "d", "", "Database DSN")
	fs.IntVar(&concurrency, "concurrency", 0, "In-flight request limit")
	fs.IntVar(&maxRetries, "max-retries", 0, "Attempts per request on transient errors")
	fs.DurationVar(&syncInterval, "i", 0, "Sync interval (e.g., 5m)")
	fs.BoolVar(&stopOnError, "stop-on-error", false, "Abort a pass on the first per-object failure")
	fs.IntVar(&downloadBatch, "download-batch", 0, "Keys per object request")
	fs.IntVar(&uploadBatch, "upload-batch", 0, "Objects per write request")
	fs.IntVar(&maxRestarts, "max-restarts", 0, "Download/upload rounds after precondition failures")
	fs.Var(&metricsAddress, "m", "Metrics address host:port")
	fs.Var(&serverAddress, "a", "Reference API server address host:port")
	fs.StringVar(&jsonConfigPath, "c", "", "JSON config file path")
	fs.StringVar(&jsonConfigPath, "config", "", "JSON config file path (alias)")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("error parsing flags: %w", err)
	}

	return &StructuredConfig{
		App: App{
			APIKey: apiKey,
			UserID: userID,
			Groups: groups,
		},
		Adapter: Adapter{
			BaseURL:        baseURL,
			APIVersion:     apiVersion,
			RequestTimeout: requestTimeout,
		},
		Storage: Storage{
			DSN: databaseDSN,
		},
		Workers: Workers{
			Concurrency:  concurrency,
			MaxRetries:   maxRetries,
			SyncInterval: syncInterval,
		},
		Sync: Sync{
			StopOnError:       stopOnError,
			DownloadBatchSize: downloadBatch,
			UploadBatchSize:   uploadBatch,
			MaxRestarts:       maxRestarts,
		},
		Metrics: Metrics{
			Address: metricsAddress.String(),
		},
		APIServer: APIServer{
			Address: serverAddress.String(),
		},
		JSONFilePath: jsonConfigPath,
	}, nil
}

// String returns a canonical host:port string for a NetAddress.
// If neither Host nor Port are set, it returns an empty string.
func (a *NetAddress) String() string {
	if a.Host == "" && a.Port == 0 {
		return ""
	}

	return a.Host + ":" + strconv.Itoa(a.Port)
}

// Set parses the input string of form host:port and populates the NetAddress.
// It validates the port range, checks IP correctness unless host is "localhost",
// and returns an error if the format or values are invalid.
func (a *NetAddress) Set(s string) error {
	hostAndPort := strings.Split(s, ":")
	if len(hostAndPort) != 2 {
		return errors.New("need address in a form `host:port`")
	}

	host := hostAndPort[0]
	port, err := strconv.Atoi(hostAndPort[1])
	if err != nil {
		return err
	}

	if port < 1 || port > 65535 {
		return errors.New("port number must be in range 1..65535")
	}

	if host != "localhost" && host != "" {
		ip := net.ParseIP(host)
		if ip == nil {
			return errors.New("incorrect IP-address provided")
		}
	}

	a.Host = host
	a.Port = port
	return nil
}
