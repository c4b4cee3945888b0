package ftpserver

import "strings"

// handlerFunc is the signature every command handler implements. param is
// the already-parsed argument string (flags are reached separately via the
// Command on the session's current dispatch).
type handlerFunc func(c *Session, param string) error

// commandDescriptor is one row of the command registry: a canonical
// directive plus everything FEAT/HELP/the dispatcher need to know about it.
type commandDescriptor struct {
	Aliases     []string
	Syntax      string // template, "{{cmd}}" substituted with the name given to HELP
	Description string
	Feat        string // FEAT advertisement string, "" if none
	NoAuth      bool   // dispatchable before authentication
	Obsolete    bool
	Handler     handlerFunc
}

// commandRegistry is the static table keyed by canonical directive.
var commandRegistry map[string]*commandDescriptor //nolint:gochecknoglobals

// commandAliases maps every alias (including the canonical name itself) to
// its canonical directive.
var commandAliases map[string]string //nolint:gochecknoglobals

func init() { //nolint:gochecknoinits
	commandRegistry = buildCommandRegistry()
	commandAliases = make(map[string]string)

	for canon, desc := range commandRegistry {
		commandAliases[canon] = canon
		for _, alias := range desc.Aliases {
			commandAliases[alias] = canon
		}
	}
}

func buildCommandRegistry() map[string]*commandDescriptor {
	return map[string]*commandDescriptor{
		"USER": {Syntax: "{{cmd}} <name>", Description: "Authentication username", NoAuth: true, Handler: (*Session).handleUSER},
		"PASS": {Syntax: "{{cmd}} <password>", Description: "Authentication password", NoAuth: true, Handler: (*Session).handlePASS},
		"QUIT": {Syntax: "{{cmd}}", Description: "Terminate session", NoAuth: true, Handler: (*Session).handleQUIT},
		"FEAT": {Syntax: "{{cmd}}", Description: "Get available features", NoAuth: true, Handler: (*Session).handleFEAT},
		"HELP": {Syntax: "{{cmd}} [<command>]", Description: "Get help on a command", NoAuth: true, Handler: (*Session).handleHELP},
		"NOOP": {Syntax: "{{cmd}}", Description: "Do nothing", NoAuth: true, Handler: (*Session).handleNOOP},
		"OPTS": {Syntax: "{{cmd}} <command> <params>", Description: "Set options for a command", NoAuth: true, Handler: (*Session).handleOPTS},
		"AUTH": {Syntax: "{{cmd}} TLS", Description: "Enable TLS", Feat: "AUTH TLS", NoAuth: true, Handler: (*Session).handleAUTH},
		"PBSZ": {Syntax: "{{cmd}} <size>", Description: "Protection buffer size", Feat: "PBSZ", NoAuth: true, Handler: (*Session).handlePBSZ},
		"PROT": {Syntax: "{{cmd}} <level>", Description: "Data channel protection level", Feat: "PROT", NoAuth: true, Handler: (*Session).handlePROT},
		"ACCT": {Syntax: "{{cmd}} <info>", Description: "Account information (unimplemented)", NoAuth: true, Handler: (*Session).handleACCT},

		"CWD":  {Aliases: []string{"XCWD"}, Syntax: "{{cmd}} <path>", Description: "Change working directory", Handler: (*Session).handleCWD},
		"CDUP": {Aliases: []string{"XCUP"}, Syntax: "{{cmd}}", Description: "Change to parent directory", Handler: (*Session).handleCDUP},
		"PWD":  {Aliases: []string{"XPWD"}, Syntax: "{{cmd}}", Description: "Print working directory", Handler: (*Session).handlePWD},
		"MKD":  {Aliases: []string{"XMKD"}, Syntax: "{{cmd}} <path>", Description: "Create directory", Handler: (*Session).handleMKD},
		"RMD":  {Aliases: []string{"XRMD"}, Syntax: "{{cmd}} <path>", Description: "Remove directory", Handler: (*Session).handleDELE},
		"DELE": {Syntax: "{{cmd}} <path>", Description: "Delete file", Handler: (*Session).handleDELE},
		"RNFR": {Syntax: "{{cmd}} <path>", Description: "Rename from", Handler: (*Session).handleRNFR},
		"RNTO": {Syntax: "{{cmd}} <path>", Description: "Rename to", Handler: (*Session).handleRNTO},

		"LIST": {Syntax: "{{cmd}} [<path>]", Description: "List directory contents", Handler: (*Session).handleLIST},
		"NLST": {Syntax: "{{cmd}} [<path>]", Description: "List file names", Handler: (*Session).handleNLST},
		"MLSD": {Syntax: "{{cmd}} [<path>]", Description: "Machine-readable directory listing", Feat: "MLSD", Handler: (*Session).handleMLSD},
		"MLST": {Syntax: "{{cmd}} [<path>]", Description: "Machine-readable object listing", Feat: "MLST Type*;Size*;Modify*;Perm*;UNIX.mode*;", Handler: (*Session).handleMLST},
		"SIZE": {Syntax: "{{cmd}} <path>", Description: "Size of file", Feat: "SIZE", Handler: (*Session).handleSIZE},
		"MDTM": {Syntax: "{{cmd}} <path>", Description: "File modification time", Feat: "MDTM", Handler: (*Session).handleMDTM},
		"STAT": {Syntax: "{{cmd}} [<path>]", Description: "Status", Handler: (*Session).handleSTAT},

		"SYST": {Syntax: "{{cmd}}", Description: "System type", Handler: (*Session).handleSYST},
		"TYPE": {Syntax: "{{cmd}} <type>", Description: "Representation type", Handler: (*Session).handleTYPE},
		"MODE": {Syntax: "{{cmd}} <mode>", Description: "Transfer mode", Handler: (*Session).handleMODE},
		"STRU": {Syntax: "{{cmd}} <structure>", Description: "File structure", Handler: (*Session).handleSTRU},

		"PASV": {Syntax: "{{cmd}}", Description: "Passive transfer mode", Feat: "PASV", Handler: (*Session).handlePASV},
		"EPSV": {Syntax: "{{cmd}}", Description: "Extended passive mode", Feat: "EPSV", Handler: (*Session).handleEPSV},
		"PORT": {Syntax: "{{cmd}} <address>", Description: "Active transfer mode", Handler: (*Session).handlePORT},
		"EPRT": {Syntax: "{{cmd}} <address>", Description: "Extended active mode", Feat: "EPRT", Handler: (*Session).handleEPRT},

		"REST": {Syntax: "{{cmd}} <offset>", Description: "Restart transfer at offset", Feat: "REST STREAM", Handler: (*Session).handleREST},
		"RETR": {Syntax: "{{cmd}} <path>", Description: "Retrieve a file", Handler: (*Session).handleRETR},
		"STOR": {Syntax: "{{cmd}} <path>", Description: "Store a file", Handler: (*Session).handleSTOR},
		"STOU": {Syntax: "{{cmd}} <path>", Description: "Store with a unique name", Handler: (*Session).handleSTOU},
		"APPE": {Syntax: "{{cmd}} <path>", Description: "Append to a file", Handler: (*Session).handleAPPE},
		"ABOR": {Syntax: "{{cmd}}", Description: "Abort the transfer in progress", Handler: (*Session).handleABOR},
		"ALLO": {Syntax: "{{cmd}} <size>", Description: "Allocate space (no-op)", Handler: (*Session).handleALLO},
		"SITE": {Syntax: "{{cmd}} <subcommand>", Description: "Site-specific commands", Handler: (*Session).handleSITE},
	}
}

// lookupCommand resolves an alias to its descriptor, or (nil, false).
func lookupCommand(directive string) (*commandDescriptor, bool) {
	canon, ok := commandAliases[strings.ToUpper(directive)]
	if !ok {
		return nil, false
	}

	desc := commandRegistry[canon]

	return desc, desc != nil
}
