//go:build ignore

// build.go - Volatility Explorer build script
// Usage: go run build.go [-target=TARGET]
// Targets: all, volexplorer, volscreen, clean, test, release

package main

import (
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

const (
	version = "1.0.0"
	module  = "volexplorer"
)

var (
	rootDir string
	distDir string

	// key = directory under cmd/, value = output name without extension
	executables = map[string]string{
		"volexplorer": "volexplorer",
		"volscreen":   "volscreen",
	}

	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorCyan   = "\033[36m"
)

func main() {
	target := flag.String("target", "all", "Build target")
	verbose := flag.Bool("v", false, "Verbose output")
	flag.Parse()

	cwd, err := os.Getwd()
	if err != nil {
		printError(fmt.Sprintf("Failed to get current directory: %v", err))
		os.Exit(1)
	}
	rootDir = cwd
	distDir = filepath.Join(rootDir, "dist")
	if _, err := os.Stat(filepath.Join(rootDir, "go.mod")); err != nil {
		printError("go.mod not found; run from the repository root")
		os.Exit(1)
	}

	printHeader()
	startTime := time.Now()

	switch *target {
	case "all":
		buildAll(*verbose)
	case "volexplorer", "volscreen":
		buildExecutable(*target, *verbose)
	case "clean":
		clean()
	case "test":
		runTests(*verbose)
	case "release":
		buildRelease(*verbose)
	default:
		showHelp()
		os.Exit(1)
	}

	printSuccess(fmt.Sprintf("Build completed in %s", time.Since(startTime).Round(time.Millisecond)))
}

func printHeader() {
	fmt.Println(colorCyan + "===========================================" + colorReset)
	fmt.Println(colorCyan + "     Volatility Explorer - Build System    " + colorReset)
	fmt.Println(colorCyan + "===========================================" + colorReset)
	fmt.Println()
}

func printInfo(msg string) {
	fmt.Printf("%s[INFO]%s %s\n", colorBlue, colorReset, msg)
}

func printSuccess(msg string) {
	fmt.Printf("%s[SUCCESS]%s %s\n", colorGreen, colorReset, msg)
}

func printError(msg string) {
	fmt.Printf("%s[ERROR]%s %s\n", colorRed, colorReset, msg)
}

func printWarning(msg string) {
	fmt.Printf("%s[WARNING]%s %s\n", colorYellow, colorReset, msg)
}

func buildAll(verbose bool) {
	printInfo("Building all components...")

	if err := os.MkdirAll(filepath.Join(distDir, "data"), 0755); err != nil {
		printError(fmt.Sprintf("Failed to create dist directory: %v", err))
		os.Exit(1)
	}
	for name := range executables {
		buildExecutable(name, verbose)
	}
	copyRuntimeFiles()

	printSuccess("All components built successfully!")
}

func buildExecutable(name string, verbose bool) {
	exeName := executables[name]
	if runtime.GOOS == "windows" || os.Getenv("GOOS") == "windows" {
		exeName += ".exe"
	}
	printInfo(fmt.Sprintf("Building %s...", name))

	outputPath := filepath.Join(distDir, exeName)
	ldflags := fmt.Sprintf("-s -w -X %[1]s/internal/app.Version=%[2]s -X %[1]s/internal/app.BuildTime=%[3]s",
		module, version, time.Now().UTC().Format(time.RFC3339))

	args := []string{"build"}
	if verbose {
		args = append(args, "-v")
	}
	args = append(args, "-ldflags", ldflags, "-o", outputPath, "./cmd/"+name)

	cmd := exec.Command("go", args...)
	cmd.Dir = rootDir
	cmd.Stderr = os.Stderr
	if verbose {
		fmt.Printf("Running: go %s\n", strings.Join(args, " "))
		cmd.Stdout = os.Stdout
	}

	if err := cmd.Run(); err != nil {
		printError(fmt.Sprintf("Failed to build %s: %v", name, err))
		os.Exit(1)
	}

	if info, err := os.Stat(outputPath); err == nil {
		printSuccess(fmt.Sprintf("Built %s (%.1f MB)", exeName, float64(info.Size())/1024/1024))
	}
}

// copyRuntimeFiles places the sample dataset and config next to the binaries
func copyRuntimeFiles() {
	files := map[string]string{
		"config.example.yaml":               filepath.Join(distDir, "config.example.yaml"),
		filepath.Join("data", "vol_df.csv"): filepath.Join(distDir, "data", "vol_df.csv"),
	}
	for src, dest := range files {
		if err := copyFile(filepath.Join(rootDir, src), dest); err != nil {
			printWarning(fmt.Sprintf("Failed to copy %s: %v", src, err))
		}
	}
}

func copyFile(src, dest string) error {
	input, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return err
	}
	return os.WriteFile(dest, input, 0644)
}

func clean() {
	printInfo("Cleaning build artifacts...")
	if err := os.RemoveAll(distDir); err != nil {
		printError(fmt.Sprintf("Failed to clean dist directory: %v", err))
		return
	}
	logs, _ := filepath.Glob(filepath.Join(rootDir, "logs", "*.log"))
	for _, f := range logs {
		os.Remove(f)
	}
	printSuccess("Build artifacts cleaned")
}

func runTests(verbose bool) {
	printInfo("Running Go tests...")
	args := []string{"test", "-race"}
	if verbose {
		args = append(args, "-v")
	}
	args = append(args, "./...")

	cmd := exec.Command("go", args...)
	cmd.Dir = rootDir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		printError(fmt.Sprintf("Go tests failed: %v", err))
		os.Exit(1)
	}
	printSuccess("All tests passed")
}

func buildRelease(verbose bool) {
	printInfo("Building release version...")
	clean()
	os.Setenv("CGO_ENABLED", "0")
	buildAll(verbose)

	content := fmt.Sprintf("Volatility Explorer v%s\nBuilt: %s\n", version, time.Now().Format("2006-01-02 15:04:05"))
	if err := os.WriteFile(filepath.Join(distDir, "VERSION.txt"), []byte(content), 0644); err != nil {
		printWarning(fmt.Sprintf("Failed to write VERSION.txt: %v", err))
	}
	printSuccess("Release build completed")
}

func showHelp() {
	fmt.Println("Usage: go run build.go [-target=TARGET] [-v]")
	fmt.Println()
	fmt.Println("Targets:")
	fmt.Println("  all           Build every binary into dist/ (default)")
	fmt.Println("  volexplorer   Build the server")
	fmt.Println("  volscreen     Build the command-line screener")
	fmt.Println("  clean         Remove dist/ and log files")
	fmt.Println("  test          Run all tests with the race detector")
	fmt.Println("  release       Clean, then build with CGO disabled")
}
