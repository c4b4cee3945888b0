// Package ftpserver provides the control-connection protocol engine, the
// data-channel subsystem and the virtual filesystem contract for an FTP
// server whose storage backend is an object store reachable over HTTP.
package ftpserver

import (
	"context"
	"crypto/tls"
	"io"
	"net"
	"os"
	"time"
)

// This file defines the seam between the protocol engine and whoever embeds
// it: the MainDriver authenticates and hands back a VirtualFileSystem, which
// is where every directory/file operation actually lands.

// MainDriver handles authentication and settings for the whole server.
type MainDriver interface {
	// GetSettings returns the server-wide settings. Called once at Listen time.
	GetSettings() (*Settings, error)

	// ClientConnected is called right after a control socket is accepted,
	// before the greeting is sent. The returned string, if non-empty, is
	// appended to the banner.
	ClientConnected(session *Session) (string, error)

	// ClientDisconnected is called once the control socket is gone, whether
	// or not the client ever authenticated.
	ClientDisconnected(session *Session)

	// AuthUser validates user/pass and returns the filesystem grant to
	// attach to the session. A non-nil error is treated as AuthError (530).
	AuthUser(session *Session, user, pass string) (LoginGrant, error)

	// GetTLSConfig returns the TLS configuration used both for AUTH TLS and
	// for implicit-TLS listeners. May be called repeatedly (e.g. to pick up
	// a renewed certificate).
	GetTLSConfig() (*tls.Config, error)
}

// LoginGrant is what AuthUser hands back on a successful login.
type LoginGrant struct {
	FS        VirtualFileSystem
	Root      string   // informational: the bucket[/prefix] this grant is scoped to
	Cwd       string   // starting working directory, defaults to "/"
	Blacklist []string // directives this session may never run
	Whitelist []string // if non-empty, only these directives may run
}

// FileKind distinguishes a regular file from a directory in the virtual
// filesystem; the object store itself has no notion of either.
type FileKind int

const (
	KindFile FileKind = iota
	KindDirectory
)

// FileEntry is the virtual filesystem's unit of metadata, returned by List
// and Get. Mode is synthetic (object stores don't carry permission bits).
type FileEntry struct {
	Name      string
	Size      int64
	ModTime   time.Time
	Mode      os.FileMode
	MediaType string
	Kind      FileKind
}

// IsDir reports whether the entry is a directory.
func (fe FileEntry) IsDir() bool {
	return fe.Kind == KindDirectory
}

// WriteOptions parametrizes VirtualFileSystem.Write.
type WriteOptions struct {
	Append bool  // APPE semantics: upsert onto an existing object
	Start  int64 // REST offset, 0 if none was set
}

// VirtualFileSystem maps FTP-visible paths onto object-store operations. One
// instance is attached per authenticated session (via LoginGrant.FS); an
// implementation must be safe for the sequential, single-session use the
// protocol engine makes of it. It does not need to be safe for concurrent
// use by multiple sessions unless the implementation chooses to share state
// between them.
type VirtualFileSystem interface {
	// Chdir validates that path resolves to an existing directory (or root)
	// and returns the normalized client path to change to.
	Chdir(ctx context.Context, path string) (string, error)

	// List returns the entries of the directory at path. Unless showHidden,
	// dot-prefixed names and the placeholder object are omitted.
	List(ctx context.Context, path string, showHidden bool) ([]FileEntry, error)

	// Get returns metadata for exactly one path, file or directory.
	Get(ctx context.Context, path string) (FileEntry, error)

	// Read opens a streaming read starting at byte offset start.
	Read(ctx context.Context, path string, start int64) (io.ReadCloser, error)

	// Write opens a streaming write, optionally resuming/appending.
	Write(ctx context.Context, path string, opts WriteOptions) (io.WriteCloser, error)

	// Delete removes a file, or a directory and everything under it.
	Delete(ctx context.Context, path string) error

	// Mkdir creates a directory placeholder.
	Mkdir(ctx context.Context, path string) error

	// Rename moves a file or directory (recursively) from one path to another.
	Rename(ctx context.Context, from, to string) error

	// Chmod is accepted for protocol compatibility; implementations are not
	// required to persist it.
	Chmod(ctx context.Context, path string, mode os.FileMode) error

	// GetUniqueName derives a collision-resistant variant of name, used by STOU.
	GetUniqueName(name string) string
}

// VirtualFileSystemExtensionAvailableSpace is an optional free-space
// extension. No command in the registry calls it (there is no AVBL handler).
type VirtualFileSystemExtensionAvailableSpace interface {
	GetAvailableSpace(ctx context.Context, dirName string) (int64, error)
}

// PortRange is an inclusive range of TCP ports used for passive connections.
type PortRange struct {
	Start int
	End   int
}

// PublicIPResolver resolves the hostname to advertise in PASV/EPSV replies
// for a given session, e.g. by calling out to a WAN-IP discovery endpoint.
type PublicIPResolver func(session *Session) (string, error)

// TLSRequirement enumerates how strongly the server insists on TLS.
type TLSRequirement int

const (
	ClearOrEncrypted TLSRequirement = iota
	MandatoryEncryption
	ImplicitEncryption
)

// Settings holds the server-wide configuration returned by
// MainDriver.GetSettings.
type Settings struct {
	Listener                 net.Listener // optional pre-built listener
	ListenAddr               string
	PublicHost               string
	PublicIPResolver         PublicIPResolver
	PassiveTransferPortRange *PortRange
	PassiveIdleTimeout       time.Duration // default 30s, see §4.6
	ActiveTransferPortNon20  bool
	IdleTimeout              time.Duration // 0 disables
	ConnectionTimeout         time.Duration // time to establish a data connection
	DisableMLSD               bool
	DisableMLST               bool
	DisableMFMT               bool
	Banner                    string
	TLSRequired               TLSRequirement
	DisableLISTArgs           bool
	DisableSite               bool
	DisableActiveMode         bool
	DisableSTAT               bool
	DisableSYST               bool
	DefaultTransferType       TransferType
	Anonymous                 bool
	ListFormat                string // "ls" or "ep"
	Blacklist                 []string
	Whitelist                 []string
	ConnectRateLimit          RateLimitConfig // per source IP, default 30/60s
	CommandRateLimit          RateLimitConfig // per session, default 300/60s
	PassiveAttempts           int             // port-probe retries, default 5
	EndOnProcessSignal        bool
}

// TransferType is the data representation type negotiated via TYPE.
type TransferType int

const (
	TransferTypeBinary TransferType = iota
	TransferTypeASCII
)
