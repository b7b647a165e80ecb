// Command benthos-mqtt is a Benthos distribution that includes the
// mqtt_publisher output.
//
//	benthos-mqtt -c pipeline.yaml
package main

import (
	"context"

	"github.com/redpanda-data/benthos/v4/public/service"

	_ "github.com/redpanda-data/benthos/v4/public/components/io"
	_ "github.com/redpanda-data/benthos/v4/public/components/pure"

	_ "github.com/nerrad567/mqtt-event-publisher/internal/benthosplugin"
)

func main() {
	service.RunCLI(context.Background())
}
