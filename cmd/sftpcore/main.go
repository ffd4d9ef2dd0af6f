// Command sftpcore is a small batch SFTP client built on the sftp and
// xfer packages: connect, authenticate, and run a single get or put,
// driven entirely by flags so it can be scripted. It exists to give
// the library a runnable entry point; it is not the spec's
// deliverable, the packages are.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/wscp/sftpcore/config"
	"github.com/wscp/sftpcore/sftp"
	"github.com/wscp/sftpcore/xfer"

	"golang.org/x/crypto/ssh"
)

func main() {
	var (
		addr       = flag.String("addr", "", "host:port of the SFTP server")
		user       = flag.String("user", "", "SSH username")
		keyFile    = flag.String("identity", "", "path to a private key for publickey auth")
		password   = flag.String("password", "", "password for password auth (prefer -identity)")
		proxyAddr  = flag.String("socks5", "", "optional SOCKS5 proxy address")
		configFile = flag.String("config", "", "optional YAML settings file, see config.Settings")
		remoteDir  = flag.String("remote-dir", ".", "remote directory for put; with -get, the local directory downloads are written to (remote files are named by their own paths)")
		get        = flag.Bool("get", false, "download flag.Args() instead of uploading them")
		daemon     = flag.Bool("daemon", false, "after the transfer, keep running and sweep orphaned .filepart files on the configured schedule")
	)
	flag.Parse()

	if *addr == "" || *user == "" {
		fmt.Fprintln(os.Stderr, "usage: sftpcore -addr host:port -user NAME [-identity KEY | -password PASS] [-get] [-remote-dir DIR] file...")
		os.Exit(2)
	}

	settings := config.Defaults()
	if *configFile != "" {
		var err error
		settings, err = config.Load(*configFile)
		if err != nil {
			log.Fatalf("loading config: %v", err)
		}
	}

	authMethods, err := authMethodsFor(*keyFile, *password)
	if err != nil {
		log.Fatalf("building auth: %v", err)
	}

	clientConfig := &ssh.ClientConfig{
		User:            *user,
		Auth:            authMethods,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         15 * time.Second,
	}

	client, err := sftp.Dial(*addr, clientConfig, sftp.DialOptions{ProxyAddr: *proxyAddr})
	if err != nil {
		log.Fatalf("dial %s: %v", *addr, err)
	}
	defer client.Close()
	client.SetPathCaching(settings.CacheDirectories)

	engine := xfer.NewEngine(client, nil, nil, settings.CopyParameters())
	engine.Finish = func(name string, success bool, disconnectWhenComplete bool) {
		log.Printf("%s: done, success=%v", name, success)
	}

	files := flag.Args()
	if len(files) == 0 {
		log.Fatal("no files given")
	}

	if *get {
		err = engine.CopyToLocal(files, *remoteDir)
	} else {
		err = engine.CopyToRemote(files, *remoteDir)
	}
	if err != nil {
		log.Fatalf("transfer: %v", err)
	}

	if *daemon && settings.Housekeeping.Enabled {
		housekeeper := xfer.NewHousekeeper(xfer.NewOsLocalFS(), settings.PartialExt, settings.Housekeeping.MaxAge)
		if err := housekeeper.ScheduleSweep(settings.Housekeeping.Dir, settings.Housekeeping.Schedule); err != nil {
			log.Fatalf("housekeeping: %v", err)
		}
		housekeeper.Start()
		defer housekeeper.Stop()
		log.Printf("housekeeping: sweeping %s on %q", settings.Housekeeping.Dir, settings.Housekeeping.Schedule)
		select {}
	}
}

func authMethodsFor(keyFile, password string) ([]ssh.AuthMethod, error) {
	if keyFile != "" {
		key, err := os.ReadFile(keyFile)
		if err != nil {
			return nil, fmt.Errorf("reading identity file: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			return nil, fmt.Errorf("parsing identity file: %w", err)
		}
		return []ssh.AuthMethod{ssh.PublicKeys(signer)}, nil
	}
	return []ssh.AuthMethod{ssh.Password(password)}, nil
}
