// Command rgpiod is the network daemon described in spec.md §4.4/§6: one
// process owning every open chip and bus handle on the host, speaking the
// framed wire protocol over a TCP or Unix-domain listener.
//
// There is no CLI-flag library anywhere in the retrieved examples, so
// flag parsing here uses the standard library (see DESIGN.md).
package main

import (
	"flag"
	"log"
	"net"
	"os"

	"github.com/sbcgo/rgpiod/internal/daemon"
)

const (
	exitOK = iota
	exitBadArgs
	exitCannotBind
	exitPermitError
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("rgpiod", flag.ContinueOnError)
	bindAddr := fs.String("addr", "0.0.0.0:8765", "host:port or unix socket path to listen on")
	network := fs.String("network", "tcp", "listener network: tcp or unix")
	permitPath := fs.String("permit-file", "", "path to the permit/ACL ini file")
	secretsPath := fs.String("secrets-file", "", "path to the set_user shared-secret file")
	shellDir := fs.String("shell-dir", "/etc/rgpiod/shell.d", "directory shell_exec scripts are resolved from")
	notifyDir := fs.String("notify-dir", "", "directory notifier FIFOs are created in (default: system temp dir)")
	sbcName := fs.String("sbc-name", "", "value returned by get_sbc_name")

	if err := fs.Parse(args); err != nil {
		return exitBadArgs
	}

	cfg := daemon.Config{
		BindAddr:  *bindAddr,
		ShellDir:  *shellDir,
		NotifyDir: *notifyDir,
		SBCName:   *sbcName,
	}
	srv := daemon.NewServer(cfg)

	if *permitPath != "" {
		if err := srv.LoadPermits(*permitPath, *secretsPath); err != nil {
			log.Printf("rgpiod: loading permit file %s: %v", *permitPath, err)
			return exitPermitError
		}
	}

	ln, err := net.Listen(*network, *bindAddr)
	if err != nil {
		log.Printf("rgpiod: listen %s %s: %v", *network, *bindAddr, err)
		return exitCannotBind
	}
	log.Printf("rgpiod: listening on %s %s", *network, *bindAddr)

	if err := srv.Serve(ln); err != nil {
		log.Printf("rgpiod: serve: %v", err)
	}
	return exitOK
}
