package peer

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/c-bata/go-prompt"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"bittrickle/internal/wire"
)

const (
	cmdGet       = "get"
	cmdListPeers = "lap"
	cmdListFiles = "lpf"
	cmdPublish   = "pub"
	cmdSearch    = "sch"
	cmdUnpublish = "unp"
	cmdHelp      = "help"
	cmdExit      = "xit"
)

// CommandLoop is the peer's foreground activity: it reads interactive
// commands, translates each into a discovery request and prints the
// structured reply. A failed command never ends the loop.
type CommandLoop struct {
	session  *Session
	shutdown func()
}

// NewCommandLoop creates a command loop for an active session.
// shutdown is invoked once when the user exits.
func NewCommandLoop(session *Session, shutdown func()) *CommandLoop {
	return &CommandLoop{session: session, shutdown: shutdown}
}

// Run blocks until the user exits with xit or Ctrl+C.
func (c *CommandLoop) Run() {
	color.Cyan("Available commands are: get, lap, lpf, pub, sch, unp, xit")
	p := prompt.New(
		c.execute,
		c.complete,
		prompt.OptionTitle("bittrickle"),
		prompt.OptionPrefix("> "),
		prompt.OptionPrefixTextColor(prompt.Green),
		prompt.OptionCompletionWordSeparator(" "),
		prompt.OptionSetExitCheckerOnInput(func(in string, breakline bool) bool {
			return breakline && firstWord(in) == cmdExit
		}),
		prompt.OptionAddKeyBind(prompt.KeyBind{
			Key: prompt.ControlC,
			Fn: func(buf *prompt.Buffer) {
				color.Yellow("\nGoodbye!")
				c.shutdown()
				os.Exit(0)
			},
		}),
	)
	p.Run()
}

func (c *CommandLoop) complete(d prompt.Document) []prompt.Suggest {
	if strings.Contains(d.TextBeforeCursor(), " ") {
		return nil
	}
	suggestions := []prompt.Suggest{
		{Text: cmdGet, Description: "Download a published file from its peer"},
		{Text: cmdListPeers, Description: "List other active peers"},
		{Text: cmdListFiles, Description: "List files you have published"},
		{Text: cmdPublish, Description: "Publish a file from the share directory"},
		{Text: cmdSearch, Description: "Search published files by substring"},
		{Text: cmdUnpublish, Description: "Withdraw a file you published"},
		{Text: cmdHelp, Description: "Show command usage"},
		{Text: cmdExit, Description: "Log off and exit"},
	}
	return prompt.FilterHasPrefix(suggestions, d.GetWordBeforeCursor(), true)
}

func (c *CommandLoop) execute(input string) {
	fields := strings.Fields(input)
	if len(fields) == 0 {
		return
	}
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case cmdListPeers:
		c.listPeers()
	case cmdListFiles:
		c.listFiles()
	case cmdPublish:
		if len(args) != 1 {
			color.Red("Provide a filename to publish")
			return
		}
		c.publish(args[0])
	case cmdUnpublish:
		if len(args) != 1 {
			color.Red("Provide a filename to unpublish")
			return
		}
		c.unpublish(args[0])
	case cmdSearch:
		if len(args) != 1 {
			color.Red("Please provide a substring to search")
			return
		}
		c.search(args[0])
	case cmdGet:
		if len(args) != 1 {
			color.Red("Provide a filename to get")
			return
		}
		c.get(args[0])
	case cmdHelp:
		color.Cyan("get [filename]   download a file from the peer serving it")
		color.Cyan("lap              list other active peers")
		color.Cyan("lpf              list files you have published")
		color.Cyan("pub [filename]   publish a file you hold")
		color.Cyan("sch [substring]  search published files")
		color.Cyan("unp [filename]   withdraw a file you published")
		color.Cyan("xit              log off and exit")
	case cmdExit:
		color.Yellow("Goodbye!")
		c.shutdown()
	default:
		color.Red("Unrecognized command %q. Type %q to see command usage", cmd, cmdHelp)
	}
}

func (c *CommandLoop) listPeers() {
	resp, err := c.session.tracker.ListActive(c.session.username)
	if !reportReply(resp, err) {
		return
	}
	renderList("Active peer", resp.Users)
}

func (c *CommandLoop) listFiles() {
	resp, err := c.session.tracker.ListPublished(c.session.username)
	if !reportReply(resp, err) {
		return
	}
	renderList("Published file", resp.Files)
}

func (c *CommandLoop) publish(filename string) {
	// The file must exist locally before it is advertised; the transfer
	// responder will be asked for it by name.
	if _, err := os.Stat(filepath.Join(c.session.shareDir, filepath.Base(filename))); err != nil {
		color.Red("File does not exist in the share directory")
		return
	}
	resp, err := c.session.tracker.Publish(c.session.username, filename)
	if !reportReply(resp, err) {
		return
	}
	color.Green(resp.Message)
}

func (c *CommandLoop) unpublish(filename string) {
	resp, err := c.session.tracker.Unpublish(c.session.username, filename)
	if !reportReply(resp, err) {
		return
	}
	color.Green(resp.Message)
}

func (c *CommandLoop) search(substring string) {
	resp, err := c.session.tracker.Search(c.session.username, substring)
	if !reportReply(resp, err) {
		return
	}
	renderList("Matching file", resp.Files)
}

func (c *CommandLoop) get(filename string) {
	resp, err := c.session.tracker.Get(c.session.username, filename)
	if !reportReply(resp, err) {
		return
	}
	if err := Download(resp.PeerAddress, resp.PeerPort, filename, c.session.shareDir); err != nil {
		color.Red("Failed to download the file: %v", err)
		return
	}
	color.Green("File downloaded successfully")
}

// reportReply prints any transport or tracker failure and reports
// whether the reply is usable.
func reportReply(resp wire.Response, err error) bool {
	if err != nil {
		if errors.Is(err, ErrTimeout) {
			color.Red("Tracker did not reply in time")
		} else {
			color.Red("Error: %v", err)
		}
		return false
	}
	if !resp.OK() {
		color.Red(resp.Message)
		return false
	}
	return true
}

func renderList(header string, rows []string) {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header(header)
	for _, row := range rows {
		table.Append([]string{row})
	}
	table.Render()
}

func firstWord(in string) string {
	fields := strings.Fields(in)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
