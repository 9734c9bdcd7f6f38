// Package substitution implements the {{name}} templating language of
// §4.3: plain variable lookup against the scenario's session map, plus
// the supplemented {{fn(args)}} builtin function table the teacher's
// variable processor carries (crypto/encoding helpers, randomized test
// data generators, regex-driven string generation).
package substitution

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lucasjones/reggen"
)

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (iPhone; CPU iPhone OS 17_2 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Mobile/15E148 Safari/604.1",
}

var countryCodes = []string{
	"US", "GB", "CA", "AU", "DE", "FR", "IT", "ES", "NL", "BE",
	"EG", "SA", "AE", "IN", "BR", "MX", "ZA", "JP", "KR", "CN",
}

const (
	lettersLower = "abcdefghijklmnopqrstuvwxyz"
	lettersUpper = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	digits       = "0123456789"
	hexChars     = "0123456789abcdef"
	symbols      = "!@#$%^&*"
	alphanum     = lettersLower + lettersUpper + digits
)

// Processor renders {{...}} placeholders found in strings.
type Processor struct {
	funcMap map[string]func([]string) string
}

// New builds a Processor with the full builtin function table installed.
func New() *Processor {
	p := &Processor{}
	p.initFuncMap()
	return p
}

func (p *Processor) initFuncMap() {
	p.funcMap = map[string]func([]string) string{
		"uuid": func(args []string) string {
			return uuid.New().String()
		},
		"timestamp": func(args []string) string {
			return strconv.FormatInt(time.Now().Unix(), 10)
		},
		"timestamp_ms": func(args []string) string {
			return strconv.FormatInt(time.Now().UnixMilli(), 10)
		},
		"hmac_sha256": func(args []string) string {
			if len(args) != 2 {
				return "ERROR:hmac_sha256_needs_2_args"
			}
			h := hmac.New(sha256.New, []byte(args[0]))
			h.Write([]byte(args[1]))
			return hex.EncodeToString(h.Sum(nil))
		},
		"base64_encode": func(args []string) string {
			if len(args) != 1 {
				return "ERROR:base64_encode_needs_1_arg"
			}
			return base64.StdEncoding.EncodeToString([]byte(args[0]))
		},
		"md5": func(args []string) string {
			if len(args) != 1 {
				return "ERROR:md5_needs_1_arg"
			}
			sum := md5.Sum([]byte(args[0]))
			return hex.EncodeToString(sum[:])
		},
		"sha256": func(args []string) string {
			if len(args) != 1 {
				return "ERROR:sha256_needs_1_arg"
			}
			sum := sha256.Sum256([]byte(args[0]))
			return hex.EncodeToString(sum[:])
		},
		"time_future": func(args []string) string { return shiftedTime(args, 1) },
		"time_past":   func(args []string) string { return shiftedTime(args, -1) },
		"random_choice": func(args []string) string {
			if len(args) == 0 {
				return ""
			}
			return args[rand.IntN(len(args))]
		},
		"random_int_range": func(args []string) string {
			if len(args) != 2 {
				return "ERROR:random_int_range_needs_min_max"
			}
			min, _ := strconv.Atoi(strings.TrimSpace(args[0]))
			max, _ := strconv.Atoi(strings.TrimSpace(args[1]))
			if max <= min {
				return strconv.Itoa(min)
			}
			return strconv.Itoa(rand.IntN(max-min) + min)
		},
		"random_float_range": func(args []string) string {
			if len(args) < 2 {
				return "ERROR:random_float_range_needs_min_max"
			}
			min, _ := strconv.ParseFloat(strings.TrimSpace(args[0]), 64)
			max, _ := strconv.ParseFloat(strings.TrimSpace(args[1]), 64)
			decimals := 2
			if len(args) >= 3 {
				if d, err := strconv.Atoi(strings.TrimSpace(args[2])); err == nil {
					decimals = d
				}
			}
			val := min + rand.Float64()*(max-min)
			return fmt.Sprintf(fmt.Sprintf("%%.%df", decimals), val)
		},
		"random_string": func(args []string) string {
			length := 10
			if len(args) >= 1 {
				if l, err := strconv.Atoi(args[0]); err == nil {
					length = l
				}
			}
			chars := alphanum
			if len(args) >= 2 {
				chars = args[1]
			}
			return randomFrom(chars, length)
		},
		"random_int": func(args []string) string {
			return strconv.Itoa(rand.IntN(100000))
		},
		"random_email": func(args []string) string {
			return fmt.Sprintf("user%d@example.com", rand.IntN(1000000))
		},
		"random_name": func(args []string) string {
			names := []string{"Alice", "Bob", "Charlie", "David", "Eve", "Frank", "Grace", "Heidi"}
			return names[rand.IntN(len(names))] + fmt.Sprintf(" %d", rand.IntN(1000))
		},
		"random_phone": func(args []string) string {
			return fmt.Sprintf("+1-555-01%02d", rand.IntN(100))
		},
		"random_domain": func(args []string) string {
			return fmt.Sprintf("%s.example.com", randomFrom(alphanum, 4))
		},
		"random_alphanum": func(args []string) string {
			return randomFrom(alphanum, 10)
		},
		"random_bool": func(args []string) string {
			if rand.IntN(2) == 0 {
				return "false"
			}
			return "true"
		},
		"random_float": func(args []string) string {
			return fmt.Sprintf("%.6f", rand.Float64())
		},
		"iso8601": func(args []string) string {
			return time.Now().UTC().Format(time.RFC3339)
		},
		"random_ipv4": func(args []string) string {
			return fmt.Sprintf("%d.%d.%d.%d", rand.IntN(256), rand.IntN(256), rand.IntN(256), rand.IntN(256))
		},
		"random_user_agent": func(args []string) string {
			return userAgents[rand.IntN(len(userAgents))]
		},
		"random_mac": func(args []string) string {
			return fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X",
				rand.IntN(256), rand.IntN(256), rand.IntN(256), rand.IntN(256), rand.IntN(256), rand.IntN(256))
		},
		"random_color": func(args []string) string {
			return fmt.Sprintf("#%02x%02x%02x", rand.IntN(256), rand.IntN(256), rand.IntN(256))
		},
		"random_password": func(args []string) string {
			pw := make([]byte, 12)
			pw[0] = lettersUpper[rand.IntN(len(lettersUpper))]
			pw[1] = lettersLower[rand.IntN(len(lettersLower))]
			pw[2] = digits[rand.IntN(len(digits))]
			pw[3] = symbols[rand.IntN(len(symbols))]
			allChars := alphanum + symbols
			for i := 4; i < 12; i++ {
				pw[i] = allChars[rand.IntN(len(allChars))]
			}
			rand.Shuffle(len(pw), func(i, j int) { pw[i], pw[j] = pw[j], pw[i] })
			return string(pw)
		},
		"random_country": func(args []string) string {
			return countryCodes[rand.IntN(len(countryCodes))]
		},
		"regex_gen": func(args []string) string {
			if len(args) != 1 {
				return "ERROR:regex_gen_needs_pattern"
			}
			res, err := reggen.Generate(args[0], 10)
			if err != nil {
				return "ERROR:regex_gen_failed"
			}
			return res
		},
	}
}

func shiftedTime(args []string, sign int) string {
	if len(args) < 1 {
		return "ERROR:duration_required"
	}
	dur, err := time.ParseDuration(args[0])
	if err != nil {
		return "ERROR:invalid_duration"
	}
	layout := time.RFC3339
	if len(args) >= 2 {
		layout = args[1]
	}
	if sign < 0 {
		dur = -dur
	}
	return time.Now().Add(dur).Format(layout)
}

func randomFrom(chars string, length int) string {
	if length <= 0 || chars == "" {
		return ""
	}
	b := make([]byte, length)
	for i := range b {
		b[i] = chars[rand.IntN(len(chars))]
	}
	return string(b)
}

// Process renders every {{...}} placeholder in input. Session variables
// take priority over builtin functions and generators, matching the
// teacher's "prioritize session over dynamic" contract. Non-string
// session values are rendered with their default fmt formatting.
func (p *Processor) Process(input string, session map[string]any) string {
	if !strings.Contains(input, "{{") {
		return input
	}

	var sb strings.Builder
	sb.Grow(len(input))
	lastIdx := 0
	for i := 0; i < len(input); {
		start := strings.Index(input[i:], "{{")
		if start == -1 {
			sb.WriteString(input[i:])
			break
		}
		start += i

		end := strings.Index(input[start:], "}}")
		if end == -1 {
			sb.WriteString(input[i:])
			break
		}
		end += start

		sb.WriteString(input[lastIdx:start])
		content := strings.TrimSpace(input[start+2 : end])

		if idx := strings.IndexByte(content, '('); idx != -1 && strings.HasSuffix(content, ")") {
			funcName := strings.TrimSpace(content[:idx])
			args := parseArgs(content[idx+1 : len(content)-1])
			if f, ok := p.funcMap[funcName]; ok {
				sb.WriteString(f(args))
			} else {
				sb.WriteString(input[start : end+2])
			}
		} else {
			sb.WriteString(p.lookup(content, session))
		}

		i = end + 2
		lastIdx = i
	}

	return sb.String()
}

func (p *Processor) lookup(name string, session map[string]any) string {
	if v, ok := session[name]; ok {
		return stringify(v)
	}
	if f, ok := p.funcMap[name]; ok {
		return f(nil)
	}
	if strings.HasPrefix(name, "random_digits_") {
		return randomFrom(digits, parsePositiveInt(name[len("random_digits_"):], 10, 20))
	}
	if strings.HasPrefix(name, "random_hex_") {
		return randomFrom(hexChars, parsePositiveInt(name[len("random_hex_"):], 8, 64))
	}
	if strings.HasPrefix(name, "random_alphanum_") {
		return randomFrom(alphanum, parsePositiveInt(name[len("random_alphanum_"):], 10, 64))
	}
	return "{{" + name + "}}"
}

func stringify(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	default:
		return fmt.Sprint(s)
	}
}

func parsePositiveInt(s string, defaultVal, maxVal int) int {
	var n int
	for _, c := range s {
		if c < '0' || c > '9' {
			return defaultVal
		}
		n = n*10 + int(c-'0')
	}
	if n <= 0 {
		return defaultVal
	}
	if n > maxVal {
		return maxVal
	}
	return n
}

// parseArgs splits a function-call argument string on commas, respecting
// double-quoted segments, and trims surrounding quotes from each arg.
func parseArgs(s string) []string {
	var args []string
	var current strings.Builder
	inQuote := false

	for _, r := range s {
		switch r {
		case '"':
			inQuote = !inQuote
		case ',':
			if !inQuote {
				args = append(args, strings.TrimSpace(current.String()))
				current.Reset()
				continue
			}
			current.WriteRune(r)
		default:
			current.WriteRune(r)
		}
	}
	if current.Len() > 0 {
		args = append(args, strings.TrimSpace(current.String()))
	}

	for i, arg := range args {
		if strings.HasPrefix(arg, `"`) && strings.HasSuffix(arg, `"`) && len(arg) >= 2 {
			args[i] = arg[1 : len(arg)-1]
		}
	}
	return args
}
