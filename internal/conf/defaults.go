// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "ASTRA-Go")
	viper.SetDefault("main.instanceid", "")
	viper.SetDefault("main.baseurl", "")
	viper.SetDefault("main.log.enabled", true)
	viper.SetDefault("main.log.path", "astra.log")
	viper.SetDefault("main.log.rotation", RotationDaily)
	viper.SetDefault("main.log.maxsize", 1048576)

	viper.SetDefault("output.sqlite.enabled", true)
	viper.SetDefault("output.sqlite.path", "astra.db")
	viper.SetDefault("output.mysql.enabled", false)
	viper.SetDefault("output.mysql.username", "astra")
	viper.SetDefault("output.mysql.password", "secret")
	viper.SetDefault("output.mysql.database", "astra")
	viper.SetDefault("output.mysql.host", "localhost")
	viper.SetDefault("output.mysql.port", "3306")

	viper.SetDefault("detection.detector", "heuristic")
	viper.SetDefault("detection.timeout", 30*time.Second)
	viper.SetDefault("detection.maxconcurrency", 0)
	viper.SetDefault("detection.labels", []string{"AI-generated", "human-written", "suspicious"})
	viper.SetDefault("detection.thresholdlength", 600)
	viper.SetDefault("detection.topk", 2)
	viper.SetDefault("detection.endpoint", "http://localhost:8002/detect")

	viper.SetDefault("graph.maxedges", 300)
	viper.SetDefault("graph.maxnodes", 250)

	viper.SetDefault("exchange.limit", 100)

	viper.SetDefault("ingest.file.enabled", false)
	viper.SetDefault("ingest.file.path", "ingest")
	viper.SetDefault("ingest.file.pattern", "*.txt")
	viper.SetDefault("ingest.http.enabled", false)
	viper.SetDefault("ingest.http.urls", []string{})
	viper.SetDefault("ingest.http.timeout", 15*time.Second)
	viper.SetDefault("ingest.http.striphtml", true)

	viper.SetDefault("webserver.enabled", true)
	viper.SetDefault("webserver.port", "8003")

	viper.SetDefault("metrics.enabled", false)
	viper.SetDefault("metrics.listen", "0.0.0.0:8090")
}
