package utils

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/charmbracelet/log"
)

// DataDirEnv overrides data directory resolution when set.
const DataDirEnv = "WORDVAULT_DATA"

// PathResolver locates the directories the binaries work out of.
type PathResolver struct {
	executablePath string
	executableDir  string
	homeDir        string
	configDir      string
}

// NewPathResolver determines the executable location and the platform
// config directory once, so later lookups cannot flip-flop.
func NewPathResolver() (*PathResolver, error) {
	execPath, err := os.Executable()
	if err != nil {
		return nil, err
	}
	// Resolve symlinks so relative lookups anchor at the real binary.
	execPath, err = filepath.EvalSymlinks(execPath)
	if err != nil {
		return nil, err
	}
	execDir := filepath.Dir(execPath)

	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Warnf("Could not determine home directory: %v", err)
		homeDir = os.TempDir()
	}

	pr := &PathResolver{
		executablePath: execPath,
		executableDir:  execDir,
		homeDir:        homeDir,
		configDir:      configDirFor(homeDir),
	}
	log.Debugf("PathResolver initialized: exec=%s, configDir=%s", execPath, pr.configDir)
	return pr, nil
}

// configDirFor returns the platform config directory
func configDirFor(homeDir string) string {
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(homeDir, ".config", "wordvault")
	case "linux":
		if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
			return filepath.Join(configHome, "wordvault")
		}
		return filepath.Join(homeDir, ".config", "wordvault")
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "wordvault")
		}
		return filepath.Join(homeDir, "AppData", "Roaming", "wordvault")
	default:
		return filepath.Join(homeDir, ".wordvault")
	}
}

// DataDir resolves the directory dictionary files live in. Candidates, in
// order: the user path when absolute, the WORDVAULT_DATA environment
// variable, the user path relative to the executable and to the working
// directory, then <configDir>/data. A candidate already holding dictionary
// files wins outright; otherwise the first writable one is used.
func (pr *PathResolver) DataDir(userPath string) (string, error) {
	var candidates []string
	if userPath != "" && filepath.IsAbs(userPath) {
		candidates = append(candidates, userPath)
	}
	if env := os.Getenv(DataDirEnv); env != "" {
		candidates = append(candidates, env)
	}
	if userPath != "" {
		candidates = append(candidates, filepath.Join(pr.executableDir, userPath))
		if cwd, err := os.Getwd(); err == nil {
			candidates = append(candidates, filepath.Join(cwd, userPath))
		}
	}
	fallback := filepath.Join(pr.configDir, "data")
	candidates = append(candidates, fallback)

	for _, path := range candidates {
		if pr.hasDictionaries(path) {
			log.Debugf("Found data directory with dictionaries: %s", path)
			return path, nil
		}
	}
	for _, path := range candidates {
		if status := CheckDir(path); status.Writable {
			log.Debugf("Using writable data directory: %s", path)
			return path, nil
		}
	}
	return fallback, EnsureDir(fallback)
}

// hasDictionaries checks whether a directory holds dictionary files
func (pr *PathResolver) hasDictionaries(path string) bool {
	if stat, err := os.Stat(path); err != nil || !stat.IsDir() {
		return false
	}
	matches, err := filepath.Glob(filepath.Join(path, "*.wvlt"))
	if err != nil {
		return false
	}
	return len(matches) > 0
}

// ConfigPath returns the full path for a config file, creating the config
// directory when it is missing. Falls back to the executable directory on
// read-only installs.
func (pr *PathResolver) ConfigPath(filename string) (string, error) {
	if status := CheckDir(pr.configDir); status.Writable {
		return filepath.Join(pr.configDir, filename), nil
	}
	log.Warnf("Config directory %s is not writable, using executable directory", pr.configDir)
	return filepath.Join(pr.executableDir, filename), nil
}

// ExecutableDir returns the directory containing the executable
func (pr *PathResolver) ExecutableDir() string {
	return pr.executableDir
}

// ConfigDir returns the config directory
func (pr *PathResolver) ConfigDir() string {
	return pr.configDir
}
