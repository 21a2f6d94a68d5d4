package config

import (
	"fmt"
	"os"
)

const Template = `# taskwire runtime configuration

[archive]
# schema version payloads are saved at; also the newest version accepted
version = 1
max_record_bytes = 8388608

[parcel]
# none, lz4 or zstd
compression = "zstd"
max_payload_bytes = 8388608

[admin]
addr = ":9400"
cors_origins = ["http://localhost:3000"]

[log]
level = "info"
`

func WriteTemplate(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(Template), 0o600)
}
