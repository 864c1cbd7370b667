package main

import (
	"fmt"
	"os"

	"github.com/golang/glog"

	"github.com/terrascene/mesh_tiler/internal/tiler"
	"github.com/terrascene/mesh_tiler/pkg"
	"github.com/terrascene/mesh_tiler/pkg/algorithm_manager"
	"github.com/terrascene/mesh_tiler/tools"
)

const version = "1.0.0"

const logo = `
                      _            _   _ _
  _ __ ___   ___  ___| |__        | |_(_) | ___ _ __
 | '_ ' _ \ / _ \/ __| '_ \       | __| | |/ _ \ '__|
 | | | | | |  __/\__ \ | | |      | |_| | |  __/ |
 |_| |_| |_|\___||___/_| |_|       \__|_|_|\___|_|
         A 3D Tiles mesh tile generator written in golang
`

func main() {
	defer glog.Flush()

	if len(os.Args) < 2 {
		glog.Exitf("Please specify a subcommand [%s|%s].", tools.CommandTile, tools.CommandVerify)
	}
	cmd, args := os.Args[1], os.Args[2:]

	switch cmd {
	case tools.CommandTile:
		mainCommandTile(args)
	case tools.CommandVerify:
		mainCommandVerify(args)
	default:
		glog.Exitf("Unrecognized command %q. Command must be one of [%s|%s].",
			cmd, tools.CommandTile, tools.CommandVerify)
	}
}

func mainCommandTile(args []string) {
	flags := tools.ParseFlagsForCommandTile(args)

	if *flags.Help {
		showHelp()
		return
	}
	if *flags.Version {
		printVersion()
		return
	}

	opts, err := flags.ToTilerOptions()
	if err != nil {
		glog.Exit("Error parsing input parameters: ", err)
	}
	if _, err := os.Stat(opts.Input); os.IsNotExist(err) {
		glog.Exit("Input file/folder not found: ", opts.Input)
	}
	if opts.Output == "" {
		glog.Exit("Output folder must be specified")
	}

	fmt.Println(logo)
	glog.Infoln("options", tools.FmtJSONString(opts))

	meshTiler := pkg.NewTiler(tools.NewStandardFileFinder(), algorithm_manager.NewAlgorithmManager(opts))
	if err := meshTiler.RunTiler(opts); err != nil {
		glog.Exit("Error while tiling: ", err)
	}
	glog.Infoln("Conversion Completed")
}

func mainCommandVerify(args []string) {
	flags := tools.ParseFlagsForCommandVerify(args)

	if *flags.Help {
		showHelp()
		return
	}
	if *flags.Input == "" {
		glog.Exit("Input tileset folder must be specified")
	}

	opts := tiler.DefaultTilerOptions()
	opts.Command = tools.CommandVerify
	opts.Input = *flags.Input

	if err := pkg.NewTilerVerify().RunTiler(opts); err != nil {
		glog.Exit("Verification failed: ", err)
	}
	glog.Infoln("Verification Completed")
}

func showHelp() {
	fmt.Printf("mesh_tiler %s\n", version)
	fmt.Println("Usage:")
	fmt.Printf("  mesh_tiler %s -input <model.obj|folder> -output <tileset folder> [options]\n", tools.CommandTile)
	fmt.Printf("  mesh_tiler %s -input <tileset folder>\n", tools.CommandVerify)
	fmt.Println("Run a subcommand with -help for its full option list.")
}

func printVersion() {
	fmt.Printf("mesh_tiler v%s\n", version)
}
