// Copyright (c) 2012-2014 Jeremy Latt
// Copyright (c) 2014-2015 Edmund Huber
// Copyright (c) 2016-2017 Daniel Oaks <daniel@danieloaks.net>
// released under the MIT license

package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"syscall"

	"golang.org/x/term"

	"github.com/docopt/docopt-go"
	"github.com/veilchat/veil/irc"
	"github.com/veilchat/veil/irc/encryption"
	"github.com/veilchat/veil/irc/keystore"
	"github.com/veilchat/veil/irc/logger"
)

// set via linker flags, either by make or by goreleaser:
var commit = ""  // git hash
var version = "" // tagged version

// get a passphrase from stdin from the user
func getPassphraseFromTerminal() string {
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		log.Fatal("Error reading passphrase:", err.Error())
	}
	return string(bytePassword)
}

func promptPassphrase(confirm bool) string {
	var passphrase string
	if term.IsTerminal(int(syscall.Stdin)) {
		fmt.Print("Enter passphrase: ")
		passphrase = getPassphraseFromTerminal()
		fmt.Print("\n")
		if confirm {
			fmt.Print("Reenter passphrase: ")
			again := getPassphraseFromTerminal()
			fmt.Print("\n")
			if passphrase != again {
				log.Fatal("passphrases do not match")
			}
		}
	} else {
		reader := bufio.NewReader(os.Stdin)
		text, _ := reader.ReadString('\n')
		passphrase = strings.TrimSpace(text)
	}
	if passphrase == "" {
		log.Fatal("passphrase may not be empty")
	}
	return passphrase
}

// identityFromArgs resolves <host> <target> [--nick] into a canonical
// identity, offline, with the same rules a live session uses.
func identityFromArgs(arguments map[string]interface{}) string {
	host := arguments["<host>"].(string)
	target := arguments["<target>"].(string)
	if target[0] == '#' || target[0] == '&' {
		return irc.ChannelIdentity(host, target)
	}
	nick, _ := arguments["--nick"].(string)
	if nick == "" {
		log.Fatal("a private conversation key needs your own nick: pass --nick")
	}
	return irc.PrivateIdentity(host, nick, target)
}

// stdioUI is a line-oriented presentation layer: events print to stdout,
// input lines route to the focused session and conversation.
type stdioUI struct {
	mutex    sync.Mutex
	clients  map[string]*irc.Client
	focus    string // server name
	target   string // conversation within the focused server
	done     chan struct{}
	doneOnce sync.Once
}

func (ui *stdioUI) shutdown() {
	ui.doneOnce.Do(func() { close(ui.done) })
}

func newStdioUI() *stdioUI {
	return &stdioUI{
		clients: make(map[string]*irc.Client),
		done:    make(chan struct{}),
	}
}

func (ui *stdioUI) current() (*irc.Client, string) {
	ui.mutex.Lock()
	defer ui.mutex.Unlock()
	return ui.clients[ui.focus], ui.target
}

func (ui *stdioUI) setFocus(server, target string) {
	ui.mutex.Lock()
	ui.focus = server
	ui.target = target
	ui.mutex.Unlock()
}

func (ui *stdioUI) HandleMessage(msg irc.Message) {
	marker := ""
	if msg.Encrypted {
		marker = "🔒"
	} else if msg.Undecryptable {
		marker = "⚠(undecryptable)"
	}
	if msg.Action {
		fmt.Printf("[%s/%s] * %s %s %s\n", msg.Server, msg.Target, msg.Sender, msg.Text, marker)
	} else {
		fmt.Printf("[%s/%s] <%s> %s %s\n", msg.Server, msg.Target, msg.Sender, msg.Text, marker)
	}
}

func (ui *stdioUI) HandleMembership(change irc.MembershipChange) {
	switch change.Change {
	case "nick":
		fmt.Printf("[%s/%s] %s is now known as %s\n", change.Server, change.Channel, change.Nick, change.Param)
	case "kick":
		fmt.Printf("[%s/%s] %s was kicked by %s\n", change.Server, change.Channel, change.Nick, change.Param)
	default:
		fmt.Printf("[%s/%s] %s %ss (%s)\n", change.Server, change.Channel, change.Nick, change.Change, change.Param)
	}
}

func (ui *stdioUI) HandleTopic(server, channel, topic, setBy string) {
	if setBy != "" {
		fmt.Printf("[%s/%s] topic set by %s: %s\n", server, channel, setBy, topic)
	} else {
		fmt.Printf("[%s/%s] topic: %s\n", server, channel, topic)
	}
}

func (ui *stdioUI) HandleStatus(server, text string) {
	fmt.Printf("[%s] %s\n", server, text)
}

func (ui *stdioUI) HandleStateChange(server string, state irc.ConnectionState) {
	fmt.Printf("[%s] connection state: %s\n", server, state)
	if state == irc.Disconnected {
		ui.mutex.Lock()
		anyLive := false
		for _, client := range ui.clients {
			if client.Name() != server && client.State() != irc.Disconnected {
				anyLive = true
			}
		}
		ui.mutex.Unlock()
		if !anyLive {
			ui.shutdown()
		}
	}
}

// inputLoop reads stdin until EOF. Frontend-level commands (/server,
// /focus) are handled here; everything else goes to the focused session.
func (ui *stdioUI) inputLoop() {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n")
		if line == "" {
			continue
		}

		if name, ok := strings.CutPrefix(line, "/server "); ok {
			name = strings.TrimSpace(name)
			ui.mutex.Lock()
			client, exists := ui.clients[name]
			ui.mutex.Unlock()
			if !exists {
				fmt.Printf("no such server: %s\n", name)
				continue
			}
			ui.setFocus(name, "")
			if client.State() == irc.Disconnected {
				if err := client.Connect(); err != nil {
					fmt.Printf("connect: %v\n", err)
				}
			}
			continue
		}
		if target, ok := strings.CutPrefix(line, "/focus "); ok {
			ui.mutex.Lock()
			ui.target = strings.TrimSpace(target)
			ui.mutex.Unlock()
			continue
		}

		client, target := ui.current()
		if client == nil {
			fmt.Println("no server focused; use /server <name>")
			continue
		}
		if err := client.RunInput(line, target); err != nil {
			fmt.Printf("error: %v\n", err)
		}
	}

	// stdin closed: shut everything down
	ui.mutex.Lock()
	for _, client := range ui.clients {
		client.Quit("")
	}
	ui.mutex.Unlock()
	ui.shutdown()
}

func doRun(config *irc.Config, logman *logger.Manager, quiet bool) {
	keys, err := keystore.Open(config.Datastore.Path)
	if err != nil {
		log.Fatal("Could not open keystore: ", err.Error())
	}
	defer keys.Close()

	ui := newStdioUI()
	for i := range config.Servers {
		serverConfig := &config.Servers[i]
		client := irc.NewClient(serverConfig, keys, config.Encryption.Iterations, ui, logman, nil)
		ui.clients[serverConfig.Name] = client
		if ui.focus == "" {
			ui.focus = serverConfig.Name
		}
	}

	connected := false
	for _, serverConfig := range config.Servers {
		if serverConfig.AutoConnect {
			if err := ui.clients[serverConfig.Name].Connect(); err != nil {
				log.Fatal("Could not connect: ", err.Error())
			}
			connected = true
		}
	}
	if !connected && !quiet {
		fmt.Println("no autoconnect servers; use /server <name> to connect")
	}

	go ui.inputLoop()
	<-ui.done
}

func main() {
	irc.SetVersionString(version, commit)
	usage := `veil.
Usage:
	veil run [--conf <filename>] [--quiet]
	veil genkey <host> <target> [--nick <nick>] [--conf <filename>]
	veil delkey <host> <target> [--nick <nick>] [--conf <filename>]
	veil listkeys [--conf <filename>]
	veil -h | --help
	veil --version
Options:
	--conf <filename>  Configuration file to use [default: veil.yaml].
	--nick <nick>      Your own nick, for private conversation keys.
	--quiet            Don't show startup lines.
	-h --help          Show this screen.
	--version          Show version.`

	arguments, _ := docopt.ParseArgs(usage, nil, irc.Ver)

	configfile := arguments["--conf"].(string)
	config, err := irc.LoadConfig(configfile)
	if err != nil {
		log.Fatal("Config file did not load successfully: ", err.Error())
	}

	logman, err := logger.NewManager(config.Logging)
	if err != nil {
		log.Fatal("Logger did not load successfully: ", err.Error())
	}

	switch {
	case arguments["genkey"].(bool):
		identity := identityFromArgs(arguments)
		passphrase := promptPassphrase(true)
		ctx := encryption.NewContextIterations(passphrase, identity, config.Encryption.Iterations)

		keys, err := keystore.Open(config.Datastore.Path)
		if err != nil {
			log.Fatal("Could not open keystore: ", err.Error())
		}
		defer keys.Close()
		err = keys.Put(identity, keystore.Record{
			Key:        ctx.Key(),
			Salt:       ctx.Salt(),
			Iterations: ctx.Iterations(),
		})
		if err != nil {
			log.Fatal("Could not store key: ", err.Error())
		}
		fmt.Printf("key stored for %s\n", identity)

	case arguments["delkey"].(bool):
		identity := identityFromArgs(arguments)
		keys, err := keystore.Open(config.Datastore.Path)
		if err != nil {
			log.Fatal("Could not open keystore: ", err.Error())
		}
		defer keys.Close()
		if err := keys.Delete(identity); err != nil {
			log.Fatal("Could not delete key: ", err.Error())
		}
		fmt.Printf("key removed for %s\n", identity)

	case arguments["listkeys"].(bool):
		keys, err := keystore.Open(config.Datastore.Path)
		if err != nil {
			log.Fatal("Could not open keystore: ", err.Error())
		}
		defer keys.Close()
		identities, err := keys.Identities()
		if err != nil {
			log.Fatal("Could not enumerate keys: ", err.Error())
		}
		for _, identity := range identities {
			fmt.Println(identity)
		}

	case arguments["run"].(bool):
		if !arguments["--quiet"].(bool) {
			logman.Info("client", fmt.Sprintf("%s starting", irc.Ver))
		}
		doRun(config, logman, arguments["--quiet"].(bool))
	}
}
