package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/frame-lab/dbaserh/dbase"
	"github.com/frame-lab/dbaserh/generichttp"
	"github.com/frame-lab/dbaserh/spectrum"
	"github.com/frame-lab/dbaserh/store"
	"github.com/frame-lab/dbaserh/util"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/sirupsen/logrus"

	yml "gopkg.in/yaml.v2"
)

var (
	// Version is the version number.  Typically injected via ldflags with git build
	Version = "1"

	// ConfigFileName is what it sounds like
	ConfigFileName = "dbase-http.yml"
	k              = koanf.New(".")
)

type config struct {
	Addr            string       `yaml:"Addr"`
	Root            string       `yaml:"Root"`
	Mock            bool         `yaml:"Mock"`
	Serial          int          `yaml:"Serial"`
	HV              int          `yaml:"HV"`
	FineGain        float64      `yaml:"FineGain"`
	PulseWidth      float64      `yaml:"PulseWidth"`
	SleepSeconds    float64      `yaml:"SleepSeconds"`
	RealtimeSeconds float64      `yaml:"RealtimeSeconds"`
	CalChannels     []float64    `yaml:"CalChannels"`
	CalEnergies     []float64    `yaml:"CalEnergies"`
	DB              store.Config `yaml:"DB"`
}

func setupconfig() {
	k.Load(structs.Provider(config{
		Addr:         ":8000",
		Root:         "/",
		Mock:         false,
		Serial:       0,
		HV:           1100,
		FineGain:     0.5,
		PulseWidth:   0.75,
		SleepSeconds: 0.05,
		DB:           store.Config{Port: "3306", Database: "dbaserh"}}, "koanf"), nil)
	if err := k.Load(file.Provider(ConfigFileName), yaml.Parser()); err != nil {
		errtxt := err.Error()
		if !strings.Contains(errtxt, "no such") { // file missing, who cares
			logrus.Fatalf("error loading config: %v", err)
		}
	}
}

func root() {
	str := `dbase-http exposes control of ORTEC digiBASE-RH detector bases over HTTP
This enables a server-client architecture,
and the clients can leverage the excellent HTTP
libraries for any programming language,
instead of custom socket logic.

Usage:
	dbase-http <command>

Commands:
	run
	help
	mkconf
	conf
	version`
	fmt.Println(str)
}

func help() {
	str := `dbase-http is amenable to configuration via its .yaml file.  For a primer on YAML, see
https://yaml.org/start.html

When no configuration is provided, the defaults are used.  Keys are not case-sensitive.
The command mkconf generates the configuration file with the default values.
There is no need to do this unless you want to start from the prepopulated defaults when making
a config file.

Serial 0 causes the server to scan the attached bases and pick the first one found.
Mock: true replaces the hardware with a software simulation, useful for developing
clients with no base attached.

CalChannels and CalEnergies, when both given with two or more entries, fit a linear
energy calibration at bootup so /acquire/spectrum works immediately.  They can also
be posted to /calibration at runtime.

The DB section enables a MySQL run log; every acquisition is recorded with its
settings and event count.  Leave Enabled: false to run without a database.`
	fmt.Println(str)
}

func mkconf() {
	c := config{}
	err := k.Unmarshal("", &c)
	if err != nil {
		logrus.Fatal(err)
	}
	f, err := os.Create(ConfigFileName)
	if err != nil {
		logrus.Fatal(err)
	}
	defer f.Close()
	err = yml.NewEncoder(f).Encode(c)
	if err != nil {
		logrus.Fatal(err)
	}
}

func printconf() {
	c := config{}
	err := k.Unmarshal("", &c)
	if err != nil {
		logrus.Fatal(err)
	}
	err = yml.NewEncoder(os.Stdout).Encode(c)
	if err != nil {
		logrus.Fatal(err)
	}
}

func pversion() {
	fmt.Printf("dbase-http version %v\n", Version)
}

func run() {
	cfg := config{}
	k.Unmarshal("", &cfg)
	dcfg := dbase.Config{
		Serial:     cfg.Serial,
		HVTarget:   cfg.HV,
		FineGain:   cfg.FineGain,
		PulseWidth: cfg.PulseWidth,
		SleepT:     util.SecsToDuration(cfg.SleepSeconds),
		Realtime:   util.SecsToDuration(cfg.RealtimeSeconds),
	}
	if len(cfg.CalChannels) > 0 || len(cfg.CalEnergies) > 0 {
		cal, err := spectrum.Fit(cfg.CalChannels, cfg.CalEnergies)
		if err != nil {
			logrus.Fatalf("bad calibration in config: %v", err)
		}
		dcfg.Calibration = cal
	}

	var (
		db  *dbase.DBase
		err error
	)
	if cfg.Mock {
		logrus.Info("using mock detector base")
		db, err = dbase.New(dbase.NewMock(cfg.Serial), dcfg)
	} else {
		logrus.Info("connecting to digiBASE-RH, this blocks until the USB handshake completes")
		db, err = dbase.Open(dcfg)
	}
	if err != nil {
		logrus.Fatal(err)
	}

	// the base holds HV across process exit unless told otherwise, so
	// always walk the shutdown sequence, even on a signal
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	go func() {
		s := <-sigs
		logrus.Infof("%v: shutting down detector", s)
		if err := db.Shutdown(); err != nil {
			logrus.Errorf("shutdown: %v", err)
			os.Exit(1)
		}
		os.Exit(0)
	}()
	defer db.Shutdown()

	w := dbase.NewHTTPWrapper(db)
	if cfg.DB.Enabled {
		st, err := store.Connect(cfg.DB)
		if err != nil {
			// logrus.Fatal exits without running defers, so release the
			// detector by hand or the HV stays energized
			db.Shutdown()
			logrus.Fatalf("run log database: %v", err)
		}
		defer st.Close()
		w.Recorder = st
	}

	// clean up the submux string
	hndlrS := generichttp.SubMuxSanitize(cfg.Root)
	rootr := chi.NewRouter()
	rootr.Use(middleware.Logger)
	mux := chi.NewRouter()
	mux.Use(w.Lock.Check)
	rootr.Mount(hndlrS, mux)
	w.RT().Bind(mux)
	addr := cfg.Addr + cfg.Root
	logrus.Info("now listening for requests at ", addr)
	srv := &http.Server{Addr: cfg.Addr, Handler: rootr, ReadHeaderTimeout: 5 * time.Second}
	err = srv.ListenAndServe()
	if sderr := db.Shutdown(); sderr != nil {
		logrus.Errorf("shutdown: %v", sderr)
	}
	logrus.Fatal(err)
}

func main() {
	var cmd string
	args := os.Args
	if len(args) == 1 {
		root()
		return
	}
	setupconfig()
	cmd = args[1]
	cmd = strings.ToLower(cmd)
	switch cmd {
	case "help":
		help()
		return
	case "mkconf":
		mkconf()
		return
	case "conf":
		printconf()
		return
	case "run":
		run()
		return
	case "version":
		pversion()
		return
	default:
		logrus.Fatal("unknown command")
	}
}
