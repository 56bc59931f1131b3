package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/HamletTheHamster/eecsub/config"
	"github.com/HamletTheHamster/eecsub/hist"
	"github.com/HamletTheHamster/eecsub/render"
	"github.com/HamletTheHamster/eecsub/store"
	"github.com/HamletTheHamster/eecsub/subtract"
)

func main() {

	cfgPath, only, note, out, parallel, slide, quick, csvOut, rootOut, animate := flags()

	logpath := logpath(out, note)

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	analyses, err := selectAnalyses(cfg.Analyses, only)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	logFile := logHeader(cfgPath, note, analyses, slide)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	results, err := subtract.RunAll(ctx, store.Open, analyses, parallel)
	if err != nil {
		fail(logpath, logFile, err)
	}

	logFile, err = writeResults(results, logpath, logFile, outputs{
		slide:   slide,
		quick:   quick,
		csv:     csvOut,
		root:    rootOut,
		animate: animate,
	})
	if err != nil {
		fail(logpath, logFile, err)
	}

	writeLog(logpath, logFile)
}

//----------------------------------------------------------------------------//

func flags() (
	string, string, string, string, int, bool, bool, bool, bool, bool,
) {

	var cfgPath, only, note, out string
	var parallel int
	var slide, quick, csvOut, rootOut, animate bool

	flag.StringVar(&cfgPath, "config", "analyses.yaml", "analysis configuration file")
	flag.StringVar(&only, "only", "", "comma-separated analysis names to run")
	flag.StringVar(&note, "note", "", "note to append folder name")
	flag.StringVar(&out, "out", "plots", "directory holding the dated run folders")
	flag.IntVar(&parallel, "parallel", 1, "number of analyses run at once")
	flag.BoolVar(&slide, "slide", false, "format figures for slide presentation")
	flag.BoolVar(&quick, "glot", false, "open a gnuplot quick look per analysis")
	flag.BoolVar(&csvOut, "csv", false, "write every curve as CSV into the run folder")
	flag.BoolVar(&rootOut, "root", false, "write every curve as TH1D into results.root")
	flag.BoolVar(&animate, "gif", false, "animate the analyses' curve plots, in order, into scan.gif")
	flag.Parse()

	if parallel < 1 {
		fmt.Println("flag.Parse(): -parallel must be at least 1")
		os.Exit(1)
	}

	if flag.NArg() > 0 {
		fmt.Println("flag.Parse(): unexpected arguments:", flag.Args())
		os.Exit(1)
	}

	return cfgPath, only, note, out, parallel, slide, quick, csvOut, rootOut, animate
}

func logpath(
	out, note string,
) (
	string,
) {
	now := time.Now()
	return out + "/" + now.Format("2006-Jan-02") + "/" + now.Format("15:04:05") + ": " + note
}

func selectAnalyses(
	analyses []config.Analysis,
	only string,
) (
	[]config.Analysis, error,
) {

	if only == "" {
		return analyses, nil
	}

	byName := make(map[string]config.Analysis)
	for _, a := range analyses {
		byName[a.Name] = a
	}

	var picked []config.Analysis
	for _, name := range strings.Split(only, ",") {
		name = strings.TrimSpace(name)
		a, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("-only: no analysis named %q", name)
		}
		picked = append(picked, a)
	}
	return picked, nil
}

func logHeader(
	cfgPath, note string,
	analyses []config.Analysis,
	slide bool,
) (
	[]string,
) {

	logFile := []string{"Configuration: " + cfgPath + "\n"}
	if note != "" {
		logFile = append(logFile, "Runtime note: "+note+"\n")
	}
	if slide {
		logFile = append(logFile, "Figures formatted for slide presentation\n")
	}

	fmt.Print(logFile[0])

	for _, a := range analyses {
		str := fmt.Sprintf("\n%s: %s on %s, pT %v", a.Name, a.Recipe, a.File, a.Window)
		if a.Recipe == config.CFactorClosure {
			str += fmt.Sprintf(", truth pT %v, c-factors %s", *a.TruthWindow, a.CFactor)
		}
		if a.Strict {
			str += ", strict"
		}
		str += "\n"
		logFile = append(logFile, str)
		fmt.Print(str)
	}

	return logFile
}

// fileName keeps curve labels usable as file names.
func fileName(label string) string {
	return strings.NewReplacer(
		"/", "over",
		" ", "_",
		"(", "",
		")", "",
		",", "",
	).Replace(label)
}

func writeLog(
	logpath string,
	logFile []string,
) {

	if err := os.MkdirAll(logpath, 0755); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	txt, err := os.Create(logpath + "/log.txt")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer txt.Close()

	w := bufio.NewWriter(txt)
	defer w.Flush()
	for _, line := range logFile {
		if _, err := w.WriteString(line); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	}
}

type outputs struct {
	slide, quick, csv, root, animate bool
}

// writeResults saves the plots and optional exports of every result into
// logpath. The log lines gathered so far come back with any error.
func writeResults(
	results []*subtract.Result,
	logpath string,
	logFile []string,
	o outputs,
) (
	[]string, error,
) {

	var rootSeries []hist.Series
	var frames []string

	for _, r := range results {
		str := fmt.Sprintf("\n*%s (%s)*\n", r.Name, r.Recipe)
		logFile = append(logFile, str)
		fmt.Print(str)

		for _, line := range r.Log {
			logFile = append(logFile, line+"\n")
			fmt.Println(line)
		}

		names, err := render.Save(r, logpath, render.Options{Slide: o.slide})
		if err != nil {
			return logFile, err
		}
		for _, name := range names {
			logFile = append(logFile, "Saved "+name+"\n")
		}
		frames = append(frames, filepath.Join(logpath, names[0]+".png"))

		if o.quick {
			if err := render.QuickLook(r); err != nil {
				fmt.Println("quick look:", err)
			}
		}

		curves := r.Curves
		if r.Ratio != nil {
			curves = append(curves[:len(curves):len(curves)], *r.Ratio)
		}
		for _, c := range curves {
			name := fileName(r.Name + " " + c.Label)
			if o.csv {
				if err := store.WriteSeries(logpath, name, c.Series); err != nil {
					return logFile, err
				}
				logFile = append(logFile, "Wrote "+name+".csv\n")
			}
			rootSeries = append(rootSeries, c.Series.Clone(name))
		}
	}

	if o.root {
		path := filepath.Join(logpath, "results.root")
		if err := store.WriteROOT(path, rootSeries...); err != nil {
			return logFile, err
		}
		logFile = append(logFile, fmt.Sprintf("Wrote %d histograms to results.root\n", len(rootSeries)))
	}

	if o.animate && len(frames) > 1 {
		if err := render.Animate(frames, filepath.Join(logpath, "scan.gif"), 100); err != nil {
			return logFile, err
		}
		logFile = append(logFile, "Animated "+strconv.Itoa(len(frames))+" analyses into scan.gif\n")
	}

	return logFile, nil
}

// fail records err at the end of the run log, writes it and exits.
func fail(
	logpath string,
	logFile []string,
	err error,
) {
	fmt.Println(err)
	writeLog(logpath, append(logFile, "\nFailed: "+err.Error()+"\n"))
	os.Exit(1)
}
