package config

import (
	"fmt"
	"os"
)

// Template returns the starter kmlsync TOML config.
func Template() string {
	return kmlsyncTemplate
}

func WriteTemplate(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(kmlsyncTemplate), 0o600)
}

const kmlsyncTemplate = `name = "kmlsync"
addr = ":8765"
scheme = "http"
host = "localhost"
# master_href = "http://lg-head:8765/kml/master.kml"

update_path = "/kml/update"
master_path = "/kml/master.kml"
modify_path = "/kml/modify"
index_path = "/"
index_file = "index.html"

asset_prefix = ""
socket_path = "/ws"
metrics_path = "/metrics"

# newline-delimited JSON bus messages; empty disables the listener
bus_listen_addr = "127.0.0.1:8766"
scene_activity = "earth"

cors_origins = ["http://localhost:3000"]
`
