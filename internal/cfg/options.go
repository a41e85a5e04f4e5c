package cfg

import "gopkg.in/alecthomas/kingpin.v2"

var (
	AccessKeyEnvVar    = "AWS_ACCESS_KEY_ID"
	SecretKeyEnvVar    = "AWS_SECRET_ACCESS_KEY"
	SessionTokenEnvVar = "AWS_SESSION_TOKEN"
	RegionEnvVar       = "AWS_REGION"
)

// Options for presign command line arguments
type Options struct {
	Debug           bool
	Method          string
	Region          string
	Service         string
	AccessKey       string
	SecretKey       string
	SessionToken    string
	Expires         string
	Headers         []string
	UnsignedPayload bool
	SingleEncode    bool
	NoNormalize     bool
	URL             string
}

// NewOptions defines and parses the raw command line arguments
func NewOptions() Options {
	var opts Options
	kingpin.Flag("debug", "enable debug logging").Default("false").Envar("DEBUG").BoolVar(&opts.Debug)
	kingpin.Flag("method", "HTTP method to presign").Default("GET").StringVar(&opts.Method)
	kingpin.Flag("region", "signing region (env - AWS_REGION)").Default("us-east-1").Envar(RegionEnvVar).StringVar(&opts.Region)
	kingpin.Flag("service", "signing service name").Default("s3").StringVar(&opts.Service)
	kingpin.Flag("access-key", "access key ID (env - AWS_ACCESS_KEY_ID)").Envar(AccessKeyEnvVar).StringVar(&opts.AccessKey)
	kingpin.Flag("secret-key", "secret access key (env - AWS_SECRET_ACCESS_KEY)").Envar(SecretKeyEnvVar).StringVar(&opts.SecretKey)
	kingpin.Flag("session-token", "session token for temporary credentials (env - AWS_SESSION_TOKEN)").Default("").Envar(SessionTokenEnvVar).StringVar(&opts.SessionToken)
	kingpin.Flag("expires", "how long the presigned URL stays valid").Default("15m").StringVar(&opts.Expires)
	kingpin.Flag("header", "header to include in the signature, as 'Name: value'").StringsVar(&opts.Headers)
	kingpin.Flag("unsigned-payload", "sign with the UNSIGNED-PAYLOAD sentinel instead of an empty body hash").Default("true").BoolVar(&opts.UnsignedPayload)
	kingpin.Flag("single-encode", "URI-encode the path once, as S3-style services expect").Default("true").BoolVar(&opts.SingleEncode)
	kingpin.Flag("no-normalize", "keep dot segments and duplicate slashes in the path").Default("false").BoolVar(&opts.NoNormalize)
	kingpin.Arg("url", "the URL to presign").Required().StringVar(&opts.URL)

	kingpin.Parse()
	return opts
}
