package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

type StructuredJSONConfig struct {
	App struct {
		APIKey string  `json:"api_key"`
		UserID int64   `json:"user_id"`
		Groups []int64 `json:"groups"`
	} `json:"app,omitempty"`

	Adapter struct {
		BaseURL        string   `json:"base_url"`
		APIVersion     int      `json:"api_version"`
		RequestTimeout Duration `json:"request_timeout"`
	} `json:"adapter,omitempty"`

	Storage struct {
		DSN string `json:"dsn"`
	} `json:"storage,omitempty"`

	Workers struct {
		Concurrency  int      `json:"concurrency"`
		MaxRetries   int      `json:"max_retries"`
		SyncInterval Duration `json:"sync_interval"`
	} `json:"workers,omitempty"`

	Sync struct {
		StopOnError         bool   `json:"stop_on_error"`
		DownloadBatchSize   int    `json:"download_batch_size"`
		UploadBatchSize     int    `json:"upload_batch_size"`
		UploadBatchBytes    int    `json:"upload_batch_bytes"`
		MaxRestarts         int    `json:"max_restarts"`
		ItemDeletions       string `json:"item_deletions"`
		CollectionDeletions string `json:"collection_deletions"`
		SearchDeletions     string `json:"search_deletions"`
		SettingDeletions    string `json:"setting_deletions"`
	} `json:"sync,omitempty"`

	Metrics struct {
		Address string `json:"address"`
	} `json:"metrics,omitempty"`

	APIServer struct {
		Address string `json:"address"`
		UserID  int64  `json:"user_id"`
	} `json:"api_server,omitempty"`
}

func parseJSON(jsonFilePath string) (*StructuredConfig, error) {
	jsonFile, err := os.Open(jsonFilePath)
	if err != nil {
		return nil, fmt.Errorf("error reading a json file: %w", err)
	}
	defer jsonFile.Close()

	var jsonCfg StructuredJSONConfig
	if err := json.NewDecoder(jsonFile).Decode(&jsonCfg); err != nil {
		return nil, fmt.Errorf("error decoding json configs: %w", err)
	}

	cfg := &StructuredConfig{
		App: App{
			APIKey: jsonCfg.App.APIKey,
			UserID: jsonCfg.App.UserID,
			Groups: jsonCfg.App.Groups,
		},
		Adapter: Adapter{
			BaseURL:        jsonCfg.Adapter.BaseURL,
			APIVersion:     jsonCfg.Adapter.APIVersion,
			RequestTimeout: time.Duration(jsonCfg.Adapter.RequestTimeout),
		},
		Storage: Storage{
			DSN: jsonCfg.Storage.DSN,
		},
		Workers: Workers{
			Concurrency:  jsonCfg.Workers.Concurrency,
			MaxRetries:   jsonCfg.Workers.MaxRetries,
			SyncInterval: time.Duration(jsonCfg.Workers.SyncInterval),
		},
		Sync: Sync{
			StopOnError:         jsonCfg.Sync.StopOnError,
			DownloadBatchSize:   jsonCfg.Sync.DownloadBatchSize,
			UploadBatchSize:     jsonCfg.Sync.UploadBatchSize,
			UploadBatchBytes:    jsonCfg.Sync.UploadBatchBytes,
			MaxRestarts:         jsonCfg.Sync.MaxRestarts,
			ItemDeletions:       jsonCfg.Sync.ItemDeletions,
			CollectionDeletions: jsonCfg.Sync.CollectionDeletions,
			SearchDeletions:     jsonCfg.Sync.SearchDeletions,
			SettingDeletions:    jsonCfg.Sync.SettingDeletions,
		},
		Metrics: Metrics{
			Address: jsonCfg.Metrics.Address,
		},
		APIServer: APIServer{
			Address: jsonCfg.APIServer.Address,
			UserID:  jsonCfg.APIServer.UserID,
		},
		JSONFilePath: "",
	}

	return cfg, nil
}

// Duration is a wrapper around time.Duration that supports JSON unmarshaling from strings like "1h", "30s"
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		*d = Duration(time.Duration(value))
		return nil
	case string:
		tmp, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		*d = Duration(tmp)
		return nil
	default:
		return fmt.Errorf("invalid duration %s", string(b))
	}
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}
