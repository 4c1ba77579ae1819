package phoenixcore

import (
	"os"
	"path/filepath"
	"time"

	flags "github.com/jessevdk/go-flags"
)

const (
	defaultConfigFilename = "phoenixcore.conf"
	defaultDataDirname    = "data"
	defaultLogDirname     = "logs"
	defaultLogLevel       = "info"

	defaultConnectTimeout = 30 * time.Second
	defaultPingInterval   = 30 * time.Second
	defaultSweepInterval  = 10 * time.Second

	defaultHtlcTimeoutSafetyDelta = 3
)

// LiquidityPolicy bounds how the swap-in manager decides whether to
// promote confirmed on-chain funds into inbound Lightning liquidity.
type LiquidityPolicy struct {
	MinConfirmations  uint32 `long:"minconfs" description:"confirmations required before a UTXO is eligible for swap-in"`
	MaxFeePercent     uint32 `long:"maxfeepercent" description:"maximum percentage of the swap amount spendable on the swap-in fee"`
	MinSwapAmountSats uint64 `long:"minswapsats" description:"smallest UTXO value, in satoshis, worth swapping in"`
}

// Config is this node's full configuration surface, populated from
// defaults, an ini file, then command-line flags, in that order.
type Config struct {
	DataDir    string `long:"datadir" description:"directory to store channel and payment state"`
	LogDir     string `long:"logdir" description:"directory to store log files"`
	LogLevel   string `long:"loglevel" description:"logging level: trace, debug, info, warn, error, critical, off"`
	ConfigFile string `long:"configfile" description:"path to an ini config file"`

	Network string `long:"network" description:"bitcoin, testnet, regtest, or simnet"`

	TrampolinePubKey string        `long:"trampolinepubkey" description:"expected static public key of the remote trampoline peer"`
	TrampolineHost   string        `long:"trampolinehost" description:"host:port of the remote trampoline peer"`
	ConnectTimeout   time.Duration `long:"connecttimeout" description:"time allowed to establish the trampoline connection"`
	PingInterval     time.Duration `long:"pinginterval" description:"interval between keepalive pings to the trampoline peer"`
	SweepInterval    time.Duration `long:"sweepinterval" description:"interval between sweep passes that re-send pending please_open_channel requests"`

	// HtlcTimeoutSafetyDelta is the block margin kept before an HTLC's
	// cltv_expiry, below which the channel force-closes.
	HtlcTimeoutSafetyDelta uint32 `long:"htlctimeoutsafetydelta" description:"blocks of margin kept before an HTLC's expiry forces a unilateral close"`

	Liquidity LiquidityPolicy `group:"Liquidity" namespace:"liquidity"`
}

// DefaultConfig returns a Config populated with this node's defaults,
// before any file or flag overrides are applied.
func DefaultConfig() Config {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	dataDir := filepath.Join(homeDir, ".phoenixcore")

	return Config{
		DataDir:        filepath.Join(dataDir, defaultDataDirname),
		LogDir:         filepath.Join(dataDir, defaultLogDirname),
		LogLevel:       defaultLogLevel,
		ConfigFile:     filepath.Join(dataDir, defaultConfigFilename),
		Network:        "bitcoin",
		ConnectTimeout: defaultConnectTimeout,
		PingInterval:   defaultPingInterval,
		SweepInterval:  defaultSweepInterval,
		HtlcTimeoutSafetyDelta: defaultHtlcTimeoutSafetyDelta,
		Liquidity: LiquidityPolicy{
			MinConfirmations:  1,
			MaxFeePercent:     3,
			MinSwapAmountSats: 20000,
		},
	}
}

// LoadConfig applies the ini file named by args (or the default config
// file, if present) and then command-line flags on top of DefaultConfig.
func LoadConfig(args []string) (*Config, error) {
	cfg := DefaultConfig()

	preCfg := cfg
	preParser := flags.NewParser(&preCfg, flags.Default)
	if _, err := preParser.ParseArgs(args); err != nil {
		return nil, err
	}
	cfg.ConfigFile = preCfg.ConfigFile

	if _, err := os.Stat(cfg.ConfigFile); err == nil {
		iniParser := flags.NewParser(&cfg, flags.Default)
		if err := flags.NewIniParser(iniParser).ParseFile(cfg.ConfigFile); err != nil {
			return nil, err
		}
	}

	parser := flags.NewParser(&cfg, flags.Default)
	if _, err := parser.ParseArgs(args); err != nil {
		return nil, err
	}

	for _, dir := range []string{cfg.DataDir, cfg.LogDir} {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, err
		}
	}

	return &cfg, nil
}
