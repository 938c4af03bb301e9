package request

import (
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(s string) *string {
	return &s
}

func TestBaseRequestAt(t *testing.T) {
	t.Parallel()

	req := BaseRequestAt("a", "b", "c", "d", 123)
	assert.Equal(t, "/i?app_key=a&device_id=b&timestamp=123&sdk_version=c&sdk_name=d", req)
}

func TestBaseRequest_CurrentTime(t *testing.T) {
	t.Parallel()

	before := time.Now().UnixMilli()
	req := BaseRequest("a", "b", "c", "d")
	after := time.Now().UnixMilli()

	assert.Contains(t, req, "/i?app_key=a&device_id=b&timestamp=")
	assert.True(t, strings.HasSuffix(req, "&sdk_version=c&sdk_name=d"))

	ts, err := strconv.ParseInt(timestampOf(req), 10, 64)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, ts, before)
	assert.LessOrEqual(t, ts, after)
}

func TestAppendLocation(t *testing.T) {
	t.Parallel()

	const base = "asd"
	tests := []struct {
		name string
		loc  Location
		want string
		ok   bool
	}{
		{name: "no fields", loc: Location{}},
		{name: "empty values", loc: Location{ptr(""), ptr(""), ptr(""), ptr("")}, want: "asd&location=&ip=&country_code=&city=", ok: true},
		{name: "no location", loc: Location{nil, ptr("a"), ptr("b"), ptr("c")}, want: "asd&ip=a&country_code=b&city=c", ok: true},
		{name: "no ip", loc: Location{ptr("a"), nil, ptr("b"), ptr("c")}, want: "asd&location=a&country_code=b&city=c", ok: true},
		{name: "no country", loc: Location{ptr("a"), ptr("b"), nil, ptr("c")}, want: "asd&location=a&ip=b&city=c", ok: true},
		{name: "no city", loc: Location{ptr("a"), ptr("b"), ptr("c"), nil}, want: "asd&location=a&ip=b&country_code=c", ok: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := AppendLocation(base, tt.loc)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParams(t *testing.T) {
	t.Parallel()

	begin, err := BeginSessionParams(map[string]string{"_os": "linux"})
	require.NoError(t, err)
	assert.Equal(t, "&begin_session=1&metrics="+url.QueryEscape(`{"_os":"linux"}`), begin)

	assert.Equal(t, "&session_duration=60", SessionDurationParams(60))
	assert.Equal(t, "&end_session=1&session_duration=5", EndSessionParams(5))

	events, err := EventsParams([]map[string]any{{"key": "a b", "count": 1}})
	require.NoError(t, err)
	decoded, err := url.QueryUnescape(strings.TrimPrefix(events, "&events="))
	require.NoError(t, err)
	assert.JSONEq(t, `[{"key":"a b","count":1}]`, decoded)

	_, err = CrashParams(func() {})
	require.Error(t, err)

	assert.Equal(t, "/i?x=1&a=b&c=d", Join("/i?x=1", "&a=b", "&c=d"))
}

func timestampOf(req string) string {
	rest := req[strings.Index(req, "&timestamp=")+len("&timestamp="):]
	return rest[:strings.IndexByte(rest, '&')]
}

func TestRequestProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("base request has each field once and a fixed suffix", prop.ForAll(
		func(appKey, deviceID, version, name string, ts int64) bool {
			req := BaseRequestAt(appKey, deviceID, version, name, ts)
			return strings.Count(req, "app_key=") == 1 &&
				strings.Count(req, "device_id=") == 1 &&
				strings.Count(req, "timestamp=") == 1 &&
				strings.HasSuffix(req, "sdk_version="+version+"&sdk_name="+name)
		},
		gen.Identifier(), gen.Identifier(), gen.Identifier(), gen.Identifier(), gen.Int64Range(0, 1<<42),
	))

	properties.Property("implicit timestamp differs only in the timestamp field", prop.ForAll(
		func(appKey, deviceID, version, name string) bool {
			req := BaseRequest(appKey, deviceID, version, name)
			ts := timestampOf(req)
			if ts == "" {
				return false
			}
			parsed, err := strconv.ParseInt(ts, 10, 64)
			return err == nil && req == BaseRequestAt(appKey, deviceID, version, name, parsed)
		},
		gen.Identifier(), gen.Identifier(), gen.Identifier(), gen.Identifier(),
	))

	properties.Property("no location fields yields no request", prop.ForAll(
		func(base string) bool {
			got, ok := AppendLocation(base, Location{})
			return !ok && got == ""
		},
		gen.AnyString(),
	))

	properties.Property("set fields are appended in fixed order", prop.ForAll(
		func(base string, location, ip, country, city *string) bool {
			loc := Location{Location: location, IP: ip, CountryCode: country, City: city}
			got, ok := AppendLocation(base, loc)
			if loc.IsZero() {
				return !ok
			}

			want := base
			for _, f := range []struct {
				name  string
				value *string
			}{{"location", location}, {"ip", ip}, {"country_code", country}, {"city", city}} {
				if f.value != nil {
					want += "&" + f.name + "=" + *f.value
				}
			}
			return ok && got == want
		},
		gen.AlphaString(),
		gen.PtrOf(gen.AlphaString()),
		gen.PtrOf(gen.AlphaString()),
		gen.PtrOf(gen.AlphaString()),
		gen.PtrOf(gen.AlphaString()),
	))

	properties.TestingRun(t)
}
