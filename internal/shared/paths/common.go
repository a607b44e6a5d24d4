package paths

// CommonPath identifies a logical, platform-independent root.
type CommonPath int

const (
	UserHome CommonPath = iota
	UserDocuments
	UserAppData
	AppSaveDir
	AppDocuments

	// CommonPathCount sizes tables indexed by CommonPath.
	CommonPathCount
)

var commonPathNames = [CommonPathCount]string{
	UserHome:      "userhome",
	UserDocuments: "userdocuments",
	UserAppData:   "userappdata",
	AppSaveDir:    "appsavedir",
	AppDocuments:  "appdocuments",
}

// AppScoped lists the common paths that depend on the identity, save
// directory first.
var AppScoped = [...]CommonPath{AppSaveDir, AppDocuments}

func (c CommonPath) String() string {
	if !c.Valid() {
		return "unknown"
	}
	return commonPathNames[c]
}

// Valid reports whether c is one of the defined common paths.
func (c CommonPath) Valid() bool {
	return c >= 0 && c < CommonPathCount
}

// IsAppScoped reports whether c depends on the identity.
func (c CommonPath) IsAppScoped() bool {
	return c == AppSaveDir || c == AppDocuments
}

// ParseCommonPath converts a name such as "appsavedir" into a CommonPath.
func ParseCommonPath(name string) (CommonPath, bool) {
	for i, n := range commonPathNames {
		if n == name {
			return CommonPath(i), true
		}
	}
	return 0, false
}
