package ime

// SessionID identifies an engine session. Zero means no session.
type SessionID uint32

// Traits describes the distribution to the engine at initialization.
type Traits struct {
	SharedDataDir        string
	UserDataDir          string
	DistributionName     string
	DistributionCodeName string
	DistributionVersion  string
	AppName              string
}

// Engine is the session-oriented input engine driven by the Bridge.
//
// Snapshot getters return ok=false when the session is unknown or has
// nothing to report. Every snapshot returned with ok=true must be released.
type Engine interface {
	Initialize(traits Traits)
	Finalize()

	// StartMaintenanceOnWorkspaceChange starts a background deployment when
	// the engine decides the user's workspace changed. A true result means
	// the engine is going into maintenance.
	StartMaintenanceOnWorkspaceChange() bool

	CreateSession() SessionID
	DestroySession(id SessionID) bool
	FindSession(id SessionID) bool

	ProcessKey(id SessionID, keycode, mask int) bool

	SetOption(id SessionID, name string, value bool)
	GetOption(id SessionID, name string) bool
	SetProperty(id SessionID, name, value string)

	Status(id SessionID) (*StatusSnapshot, bool)
	Context(id SessionID) (*ContextSnapshot, bool)
	Commit(id SessionID) (*CommitSnapshot, bool)

	// OpenConfig opens a config namespace such as "weasel".
	OpenConfig(name string) (ConfigReader, bool)
}

// ConfigReader reads a hierarchical configuration by slash-separated path.
type ConfigReader interface {
	GetString(path string) (string, bool)
	GetInt(path string) (int, bool)
	GetBool(path string) (bool, bool)

	// MapKeys lists the keys of the map at path in document order.
	MapKeys(path string) []string

	Close() error
}

// UI is the presentation surface. Surfaces may render from other
// goroutines, so the style is exchanged by value: Style returns the
// surface's current record and SetStyle publishes a resolved one.
type UI interface {
	Show()
	Hide()
	Update(ctx Context, status Status)
	UpdateInputPosition(rc Rect)
	Style() UIStyle
	SetStyle(style UIStyle)
}

// PresenceProbe detects a running deployer through a system-wide exclusive
// lock. A successful TryAcquire must be followed by Release.
type PresenceProbe interface {
	TryAcquire() (bool, error)
	Release() error
}
