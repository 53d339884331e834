package catalog

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/younsl/gazua/internal/config"
	"github.com/younsl/gazua/internal/models"
)

const sampleConfig = `
ssh-path: /path/to

credential:
    aws_access_key_id: XXX1
    aws_secret_access_key: XXX2
    region: ap-northeast-2

group-tag: Group
name-tag: Name

connect-ip:
    default: public
    group:
      test1: private
    name:
      test2: public

key-file:
    default: auto
    group:
        test1: test_rsa1
    name:
        test2: test_rsa2

user:
    default: ec2-user
    group:
        test1: centos
    name:
        test2: leejuhyun
`

// fakeProviderAPI returns canned reservations per provider id
type fakeProviderAPI struct {
	mu           sync.Mutex
	reservations map[string][]types.Reservation
	errs         map[string]error
	calls        []string
}

func (f *fakeProviderAPI) DescribeInstances(_ context.Context, cfg *config.ProviderConfig) ([]types.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, cfg.ID)
	if err := f.errs[cfg.ID]; err != nil {
		return nil, err
	}
	return f.reservations[cfg.ID], nil
}

func loadSample(t *testing.T) map[string]*config.ProviderConfig {
	t.Helper()
	configs, err := config.LoadText(map[string]string{"aws": sampleConfig})
	require.NoError(t, err)
	return configs
}

func rawInstance(tags ...string) types.Instance {
	instance := types.Instance{
		InstanceId:       aws.String("i-hodolman"),
		InstanceType:     types.InstanceTypeT2Micro,
		State:            &types.InstanceState{Name: types.InstanceStateNameRunning},
		PrivateIpAddress: aws.String("123.123.123.123"),
		PublicIpAddress:  aws.String("222.222.222.222"),
		KeyName:          aws.String("hodolkey"),
	}
	for i := 0; i+1 < len(tags); i += 2 {
		instance.Tags = append(instance.Tags, types.Tag{Key: aws.String(tags[i]), Value: aws.String(tags[i+1])})
	}
	return instance
}

func reservationOf(instances ...types.Instance) types.Reservation {
	return types.Reservation{Instances: instances}
}

func TestListInstances_Normalized(t *testing.T) {
	api := &fakeProviderAPI{reservations: map[string][]types.Reservation{
		"aws": {reservationOf(rawInstance("Group", "hogroup", "Name", "honame"))},
	}}

	listing, err := New(api).ListInstances(context.Background(), loadSample(t))
	require.NoError(t, err)

	require.Len(t, listing["aws"]["hogroup"], 1)
	instance := listing["aws"]["hogroup"][0]
	assert.Equal(t, "i-hodolman", instance.ID)
	assert.Equal(t, "t2.micro", instance.Type)
	assert.Equal(t, "hogroup", instance.Group)
	assert.Equal(t, "honame", instance.Name)
	assert.True(t, instance.IsRunning)
	assert.Equal(t, "123.123.123.123", instance.PrivateIP)
	assert.Equal(t, "222.222.222.222", instance.PublicIP)
	assert.Equal(t, "222.222.222.222", instance.ConnectIP)
	assert.Equal(t, "hodolkey", instance.KeyName)
	assert.Empty(t, instance.KeyFile)
	assert.False(t, instance.HasKeyFile())
	assert.Equal(t, "ec2-user", instance.User)
}

func unsortedReservations() []types.Reservation {
	return []types.Reservation{
		reservationOf(rawInstance("Name", "z", "Group", "hogroup")),
		reservationOf(rawInstance("Name", "b", "Group", "hogroup")),
		reservationOf(rawInstance("Name", "a", "Group", "hogroup")),
		reservationOf(rawInstance("Name", "1", "Group", "hogroup")),
		reservationOf(rawInstance("Name", "1", "Group", "aogroup")),
	}
}

func TestListInstances_GroupsAndSorts(t *testing.T) {
	api := &fakeProviderAPI{reservations: map[string][]types.Reservation{"aws": unsortedReservations()}}

	listing, err := New(api).ListInstances(context.Background(), loadSample(t))
	require.NoError(t, err)

	groups := make([]string, 0)
	for group := range listing["aws"] {
		groups = append(groups, group)
	}
	assert.ElementsMatch(t, []string{"aogroup", "hogroup"}, groups)

	var names []string
	for _, instance := range listing["aws"]["hogroup"] {
		names = append(names, instance.Name)
	}
	assert.Equal(t, []string{"1", "a", "b", "z"}, names)
}

func TestListInstances_Idempotent(t *testing.T) {
	api := &fakeProviderAPI{reservations: map[string][]types.Reservation{"aws": unsortedReservations()}}
	configs := loadSample(t)
	c := New(api)

	first, err := c.ListInstances(context.Background(), configs)
	require.NoError(t, err)
	second, err := c.ListInstances(context.Background(), configs)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestListInstances_ParallelMatchesSequential(t *testing.T) {
	texts := map[string]string{"aws": sampleConfig, "aws-prod": sampleConfig, "aws-dev": sampleConfig}
	configs, err := config.LoadText(texts)
	require.NoError(t, err)

	api := &fakeProviderAPI{reservations: map[string][]types.Reservation{
		"aws":      unsortedReservations(),
		"aws-prod": {reservationOf(rawInstance("Group", "web", "Name", "web-2"), rawInstance("Group", "web", "Name", "web-1"))},
		"aws-dev":  {},
	}}

	sequential, err := New(api).ListInstances(context.Background(), configs)
	require.NoError(t, err)
	parallel, err := New(api, WithParallelism(true)).ListInstances(context.Background(), configs)
	require.NoError(t, err)

	assert.Equal(t, sequential, parallel)
	assert.Len(t, parallel, 3)
	assert.Empty(t, parallel["aws-dev"])
	assert.NotNil(t, parallel["aws-dev"])
}

func TestListInstances_ProviderErrorPropagates(t *testing.T) {
	apiErr := errors.New("AuthFailure")
	configs, err := config.LoadText(map[string]string{"aws": sampleConfig, "broken": sampleConfig})
	require.NoError(t, err)

	api := &fakeProviderAPI{
		reservations: map[string][]types.Reservation{"aws": unsortedReservations()},
		errs:         map[string]error{"broken": apiErr},
	}

	listing, err := New(api).ListInstances(context.Background(), configs)
	assert.ErrorIs(t, err, apiErr)
	assert.Contains(t, err.Error(), "broken")
	assert.Contains(t, listing, "aws")
	assert.NotContains(t, listing, "broken")
}

func TestListInstances_SkipsMissingTags(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	api := &fakeProviderAPI{reservations: map[string][]types.Reservation{
		"aws": {reservationOf(
			rawInstance("Group", "hogroup"),
			rawInstance("Name", "nameless"),
			rawInstance("Group", "hogroup", "Name", "honame"),
		)},
	}}

	listing, err := New(api, WithLogger(logger)).ListInstances(context.Background(), loadSample(t))
	require.NoError(t, err)

	assert.Equal(t, 1, listing["aws"].Count())
	assert.Equal(t, "honame", listing["aws"]["hogroup"][0].Name)
	assert.Contains(t, buf.String(), `"tag":"Name"`)
	assert.Contains(t, buf.String(), `"tag":"Group"`)
	assert.Contains(t, buf.String(), `"level":"warn"`)
}

func TestListInstances_FailOnMissingTags(t *testing.T) {
	api := &fakeProviderAPI{reservations: map[string][]types.Reservation{
		"aws": {reservationOf(rawInstance("Group", "hogroup"))},
	}}

	listing, err := New(api, WithMissingTagPolicy(FailOnMissingTags)).ListInstances(context.Background(), loadSample(t))

	var tagErr *MissingTagError
	require.ErrorAs(t, err, &tagErr)
	assert.Equal(t, "i-hodolman", tagErr.InstanceID)
	assert.Equal(t, "Name", tagErr.Tag)
	assert.NotContains(t, listing, "aws")
}

func TestNormalize_Overrides(t *testing.T) {
	cfg := loadSample(t)["aws"]

	tests := []struct {
		name      string
		group     string
		instance  string
		connectIP string
		keyFile   string
		user      string
	}{
		{
			name:      "group override",
			group:     "test1",
			instance:  "box",
			connectIP: "123.123.123.123",
			keyFile:   filepath.Join("/path/to", "test_rsa1"),
			user:      "centos",
		},
		{
			name:      "name override beats group",
			group:     "test1",
			instance:  "test2",
			connectIP: "222.222.222.222",
			keyFile:   filepath.Join("/path/to", "test_rsa2"),
			user:      "leejuhyun",
		},
		{
			name:      "defaults",
			group:     "other",
			instance:  "box",
			connectIP: "222.222.222.222",
			keyFile:   "",
			user:      "ec2-user",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(cfg, rawInstance("Group", tt.group, "Name", tt.instance))
			require.NoError(t, err)
			assert.Equal(t, tt.connectIP, got.ConnectIP)
			assert.Equal(t, tt.keyFile, got.KeyFile)
			assert.Equal(t, tt.user, got.User)
			assert.Equal(t, "123.123.123.123", got.PrivateIP)
			assert.Equal(t, "222.222.222.222", got.PublicIP)
		})
	}
}

func TestNormalize_StateAndMissingFields(t *testing.T) {
	cfg := loadSample(t)["aws"]

	raw := types.Instance{
		InstanceId: aws.String("i-stopped"),
		State:      &types.InstanceState{Name: types.InstanceStateNameStopped},
		Tags: []types.Tag{
			{Key: aws.String("Group"), Value: aws.String("hogroup")},
			{Key: aws.String("Name"), Value: aws.String("old")},
			{Key: aws.String("Name"), Value: aws.String("new")},
		},
	}

	got, err := Normalize(cfg, raw)
	require.NoError(t, err)
	assert.False(t, got.IsRunning)
	assert.Equal(t, "new", got.Name)
	assert.Empty(t, got.PublicIP)
	assert.Empty(t, got.ConnectIP)
	assert.Empty(t, got.KeyName)

	raw.State = nil
	got, err = Normalize(cfg, raw)
	require.NoError(t, err)
	assert.False(t, got.IsRunning)
}

func TestKeyFilePath(t *testing.T) {
	assert.Equal(t, "", keyFilePath("/path/to", config.KeyFileAuto))
	assert.Equal(t, "", keyFilePath("/path/to", ""))
	assert.Equal(t, "/keys/id_rsa", keyFilePath("/path/to", "/keys/id_rsa"))
	assert.Equal(t, filepath.Join("/path/to", "test_rsa1"), keyFilePath("/path/to", "test_rsa1"))
	assert.Equal(t, config.ExpandHome("~/keys/a.pem"), keyFilePath("/path/to", "~/keys/a.pem"))
	assert.Equal(t, filepath.Join("/path/to", "~other/key"), keyFilePath("/path/to", "~other/key"))
}

func TestSortByName_ByteOrder(t *testing.T) {
	instances := []models.Instance{
		{ID: "i-3", Name: "b"},
		{ID: "i-2", Name: "B"},
		{ID: "i-5", Name: "10"},
		{ID: "i-4", Name: "9"},
		{ID: "i-1", Name: "b"},
	}

	SortByName(instances)

	var order []string
	for _, instance := range instances {
		order = append(order, instance.Name+"/"+instance.ID)
	}
	assert.Equal(t, []string{"10/i-5", "9/i-4", "B/i-2", "b/i-1", "b/i-3"}, order)
}
