/*Command flipperctl is a small CLI for attaching to a Flipper: Carbon,
inspecting its modules, and issuing debug invocations. Its command
dispatch, config loading, and version reporting follow
cmd/multiserver/main.go's root/help/mkconf/conf/version/run skeleton.
*/
package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf"
	"github.com/theckman/yacspin"

	"github.com/google/gousb"

	"github.com/nicholastmosher/flipper/carbon"
	"github.com/nicholastmosher/flipper/client"
	"github.com/nicholastmosher/flipper/config"
	"github.com/nicholastmosher/flipper/fmrhttp"
	"github.com/nicholastmosher/flipper/usbtransport"
)

// Version is injected via ldflags at build time.
var Version = "dev"

var k = koanf.New(".")

func root() {
	str := `flipperctl attaches to a Flipper: Carbon over USB and exposes its
remote modules for inspection and debugging.

Usage:
	flipperctl <command>

Commands:
	run       attach to a device and serve the debug HTTP interface
	modules   attach, print each side's resolved modules, and exit
	help
	mkconf
	conf
	version`
	fmt.Println(str)
}

func help() {
	str := `flipperctl reads its configuration from flipperctl.yml in the working
directory. When no file is present, built-in defaults are used. Run
mkconf to write out the defaults as a starting point.`
	fmt.Println(str)
}

func mkconf() {
	if err := config.Write(config.Default(), config.FileName); err != nil {
		log.Fatalf("error writing config: %v", err)
	}
}

func printconf() {
	var c config.Config
	if err := k.Unmarshal("", &c); err != nil {
		log.Fatalf("error reading config: %v", err)
	}
	if err := config.WriteTo(c, os.Stdout); err != nil {
		log.Fatalf("error printing config: %v", err)
	}
}

func pversion() {
	fmt.Printf("flipperctl version %v\n", Version)
}

// attach scans for a Flipper with a spinner for operator feedback, since
// discovery over USB can take a moment; the teacher's go.mod has carried
// yacspin for exactly this kind of CLI feedback without ever using it.
func attach(c config.Config) (*carbon.Device, *usbtransport.Device, error) {
	spinner, err := yacspin.New(yacspin.Config{
		Frequency:       100 * time.Millisecond,
		CharSet:         yacspin.CharSets[9],
		Suffix:          " scanning for a Flipper",
		SuffixAutoColon: true,
		StopMessage:     "attached",
		StopCharacter:   "✓",
		StopFailMessage: "no device found",
	})
	if err != nil {
		return nil, nil, err
	}
	spinner.Start()

	usb, err := usbtransport.WaitForDevice(gousb.ID(c.VendorID), c.TransportTimeout, c.DiscoveryTimeout)
	if err != nil {
		spinner.StopFail()
		return nil, nil, err
	}
	spinner.Stop()

	atmegau2 := client.New(usb)
	return carbon.New(atmegau2, c.ATMEGAModuleSet()), usb, nil
}

func run(c config.Config) {
	dev, _, err := attach(c)
	if err != nil {
		log.Fatalf("error attaching to device: %v", err)
	}
	defer dev.Close()

	srv := fmrhttp.NewServer(dev, log.Default())
	log.Printf("serving the debug interface at %s", c.HTTPAddr)
	log.Fatal(http.ListenAndServe(c.HTTPAddr, srv))
}

func modules(c config.Config) {
	dev, _, err := attach(c)
	if err != nil {
		log.Fatalf("error attaching to device: %v", err)
	}
	defer dev.Close()

	fmt.Println("atmegau2:", dev.Atmegau2().Modules())
	fmt.Println("atsam4s:", dev.Atsam4s().Modules())
}

func loadConfig() config.Config {
	if err := config.Load(k, config.FileName); err != nil {
		log.Fatalf("error loading config: %v", err)
	}
	var c config.Config
	if err := k.Unmarshal("", &c); err != nil {
		log.Fatalf("error unmarshaling config: %v", err)
	}
	return c
}

func main() {
	args := os.Args
	if len(args) == 1 {
		root()
		return
	}

	cmd := strings.ToLower(args[1])
	switch cmd {
	case "help":
		help()
	case "mkconf":
		mkconf()
	case "conf":
		loadConfig()
		printconf()
	case "version":
		pversion()
	case "run":
		run(loadConfig())
	case "modules":
		modules(loadConfig())
	default:
		log.Fatalf("unknown command %q", cmd)
	}
}
