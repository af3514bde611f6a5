package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/DrSkyle/cloudreaper/pkg/config"
	"github.com/DrSkyle/cloudreaper/pkg/provider"
	awsprovider "github.com/DrSkyle/cloudreaper/pkg/provider/aws"
	"github.com/DrSkyle/cloudreaper/pkg/version"
)

// flags shared by every subcommand.
type globalFlags struct {
	Region    string
	Profile   string
	Verbose   bool
	JsonLogs  bool
	RulesFile string
	OtelURL   string

	MinAgeDays          int
	UnusedThresholdDays int
	CheckDays           int
	NoHistory           bool
	Protected           []string
	Strict              bool
	Concurrency         int

	// Domain tuning.
	SGClass           string
	LogGroupPrefix    string
	PendingWindowDays int
}

var (
	cfgFile string
	flags   globalFlags
)

var titleStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("208"))

var rootCmd = &cobra.Command{
	Use:   version.AppName,
	Short: "Evidence-based retirement of idle cloud resources",
	Long: titleStyle.Render("cloudreaper") + ` - usage-evidence-based resource retirement

Collects live-reference and audit-trail evidence, judges each candidate
against a retention policy, and retires what nothing can vouch for.
When evidence is missing the resource is kept. Always.`,
	Version: version.Current,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default ~/.cloudreaper.yaml)")
	rootCmd.PersistentFlags().StringVar(&flags.Region, "region", config.DefaultRegion, "AWS region")
	rootCmd.PersistentFlags().StringVar(&flags.Profile, "profile", "", "AWS profile")
	rootCmd.PersistentFlags().BoolVarP(&flags.Verbose, "verbose", "v", false, "Log every AWS call")
	rootCmd.PersistentFlags().BoolVar(&flags.JsonLogs, "json-logs", false, "Structured JSON logs on stdout")
	rootCmd.PersistentFlags().StringVar(&flags.RulesFile, "rules", "", "YAML file of CEL protection rules")
	rootCmd.PersistentFlags().StringVar(&flags.OtelURL, "otel-endpoint", "", "OTLP trace collector endpoint")

	rootCmd.PersistentFlags().IntVar(&flags.MinAgeDays, "min-age", config.DefaultMinAgeDays, "Grace period in days before a resource can be judged")
	rootCmd.PersistentFlags().IntVar(&flags.UnusedThresholdDays, "unused-threshold", config.DefaultUnusedThresholdDays, "Days without activity before a resource counts as unused")
	rootCmd.PersistentFlags().IntVar(&flags.CheckDays, "check-days", config.DefaultCheckDays, "Audit-trail lookback window in days")
	rootCmd.PersistentFlags().BoolVar(&flags.NoHistory, "no-history", false, "Skip the audit-trail scan (evidence marked partial)")
	rootCmd.PersistentFlags().StringSliceVar(&flags.Protected, "protect", []string{"default"}, "Protected name substrings (case-insensitive)")
	rootCmd.PersistentFlags().BoolVar(&flags.Strict, "strict", false, "Exit non-zero when evidence was partial")
	rootCmd.PersistentFlags().IntVar(&flags.Concurrency, "concurrency", config.DefaultConcurrencyLimit, "Upper bound on concurrent subtree executions")

	rootCmd.PersistentFlags().StringVar(&flags.SGClass, "sg-class", "all", "Security group class filter: all, ec2, rds, elb")
	rootCmd.PersistentFlags().StringVar(&flags.LogGroupPrefix, "log-prefix", "", "Log group name prefix filter")
	rootCmd.PersistentFlags().IntVar(&flags.PendingWindowDays, "pending-window", config.DefaultPendingWindowDays, "KMS deletion recovery window in days (7-30)")

	bindFlags(rootCmd.PersistentFlags())

	rootCmd.PersistentPreRunE = func(*cobra.Command, []string) error {
		return hydrateFlags(rootCmd.PersistentFlags())
	}
}

// bindFlags lets config-file and CLOUDREAPER_* env values back every flag.
func bindFlags(fs *pflag.FlagSet) {
	viper.BindPFlags(fs)
}

// hydrateFlags writes the resolved viper value back into every flag the
// command line left untouched, so config-file and env settings reach the
// code that reads the flag variables directly.
func hydrateFlags(fs *pflag.FlagSet) error {
	var firstErr error
	fs.VisitAll(func(f *pflag.Flag) {
		if f.Changed || !viper.IsSet(f.Name) {
			return
		}
		var val string
		switch v := viper.Get(f.Name).(type) {
		case []interface{}:
			parts := make([]string, 0, len(v))
			for _, item := range v {
				parts = append(parts, fmt.Sprint(item))
			}
			val = strings.Join(parts, ",")
		default:
			val = fmt.Sprint(v)
		}
		if err := fs.Set(f.Name, val); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("applying config value for --%s: %w", f.Name, err)
		}
	})
	return firstErr
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.SetConfigFile(filepath.Join(home, ".cloudreaper.yaml"))
			viper.SetConfigType("yaml")
		}
	}
	viper.SetEnvPrefix("CLOUDREAPER")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	viper.ReadInConfig()
}

func settingsFromFlags(dryRun bool) config.Settings {
	s := config.DefaultSettings()
	s.MinAgeDays = flags.MinAgeDays
	s.UnusedThresholdDays = flags.UnusedThresholdDays
	s.CheckDays = flags.CheckDays
	s.CheckHistoricalUsage = !flags.NoHistory
	s.ProtectedNamePatterns = flags.Protected
	s.ConcurrencyLimit = flags.Concurrency
	s.DryRun = dryRun
	return s
}

func newClient(ctx context.Context) (*awsprovider.Client, error) {
	return awsprovider.NewClient(ctx, flags.Region, flags.Profile, flags.Verbose)
}

// domainNames lists the retirement domains in the order help shows them.
func domainNames() []string {
	return []string{"ami", "sg", "kms", "loggroup", "sagemaker"}
}

func buildProvider(client *awsprovider.Client, domain string) (provider.ResourceProvider, config.DomainPreset, error) {
	presets := config.Presets()
	preset, ok := presets[domain]
	if !ok {
		return nil, config.DomainPreset{}, fmt.Errorf("unknown domain %q (want one of %s)", domain, strings.Join(domainNames(), ", "))
	}

	switch domain {
	case "ami":
		return awsprovider.NewAMIProvider(client.Config), preset, nil
	case "sg":
		return awsprovider.NewSecurityGroupProvider(client.Config, awsprovider.SGClass(flags.SGClass)), preset, nil
	case "kms":
		return awsprovider.NewKeyProvider(client.Config, flags.PendingWindowDays), preset, nil
	case "loggroup":
		return awsprovider.NewLogGroupProvider(client.Config, flags.LogGroupPrefix), preset, nil
	case "sagemaker":
		return awsprovider.NewSpaceProvider(client.Config), preset, nil
	default:
		return nil, config.DomainPreset{}, fmt.Errorf("unknown domain %q", domain)
	}
}
