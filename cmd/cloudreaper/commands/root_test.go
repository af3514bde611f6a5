package commands

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHydrateFlagsBackfillsUnsetFlags(t *testing.T) {
	t.Cleanup(viper.Reset)

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	minAge := fs.Int("min-age", 30, "")
	checkDays := fs.Int("check-days", 90, "")
	protect := fs.StringSlice("protect", []string{"default"}, "")
	region := fs.String("region", "us-east-1", "")

	require.NoError(t, fs.Set("region", "eu-west-1"))

	viper.Set("min-age", 45)
	viper.Set("protect", []interface{}{"prod", "core"})
	viper.Set("region", "ap-south-1")

	require.NoError(t, hydrateFlags(fs))

	assert.Equal(t, 45, *minAge, "config value reaches an untouched flag")
	assert.Equal(t, []string{"prod", "core"}, *protect)
	assert.Equal(t, "eu-west-1", *region, "an explicit flag wins over config")
	assert.Equal(t, 90, *checkDays, "flags absent from config keep their default")
}

func TestHydrateFlagsRejectsBadConfigValue(t *testing.T) {
	t.Cleanup(viper.Reset)

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.Int("min-age", 30, "")
	viper.Set("min-age", "not-a-number")

	err := hydrateFlags(fs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "min-age")
}
