// Command osmscoutimport reads a single OSM input file and writes the
// full set of persistent stores and indices into an output directory.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/hauke96/sigolo/v2"

	"osmscout/importing"
)

const version = "v0.1.0"

var cli struct {
	Logging string      `help:"Logging verbosity." enum:"info,debug,trace" short:"l" default:"info"`
	Version VersionFlag `help:"Print version information and quit." name:"version" short:"v"`

	Input  string `help:"The input file. Either .osm or .osm.pbf." placeholder:"<input-file>" arg:"" type:"existingfile"`
	Output string `help:"Output directory for the imported database." placeholder:"<output-dir>" arg:""`

	AreaIndexLevel uint `help:"Zoom level the area index is built at." default:"10"`
}

type VersionFlag string

func (v VersionFlag) Decode(ctx *kong.DecodeContext) error { return nil }
func (v VersionFlag) IsBool() bool                         { return true }
func (v VersionFlag) BeforeApply(app *kong.Kong, vars kong.Vars) error {
	fmt.Println(vars["version"])
	app.Exit(0)
	return nil
}

func main() {
	kong.Parse(
		&cli,
		kong.Name("osmscoutimport"),
		kong.Description("Imports an OSM extract into an osmscout database directory."),
		kong.Vars{"version": version},
	)

	switch strings.ToLower(cli.Logging) {
	case "debug":
		sigolo.SetDefaultLogLevel(sigolo.LOG_DEBUG)
	case "trace":
		sigolo.SetDefaultLogLevel(sigolo.LOG_TRACE)
	default:
		sigolo.SetDefaultLogLevel(sigolo.LOG_INFO)
		sigolo.SetDefaultFormatFunctionAll(sigolo.LogPlain)
	}

	typeConfig := importing.BuildStandardTypeConfig()
	opts := importing.DefaultOptions(cli.Output, typeConfig)
	opts.AreaIndexLevel = cli.AreaIndexLevel

	result, err := importing.Import(cli.Input, opts)
	if err != nil {
		sigolo.Errorf("import failed: %+v", err)
		os.Exit(1)
	}

	sigolo.Infof("imported %d nodes, %d ways, %d areas, %d route nodes (%d objects skipped) in %s",
		result.NodesWritten, result.WaysWritten, result.AreasWritten, result.RouteNodesWritten,
		result.ObjectsSkipped, result.Duration)
	os.Exit(0)
}
