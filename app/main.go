package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/go-pkgz/fileutils"
	"github.com/go-pkgz/lgr"
	"github.com/jessevdk/go-flags"
	"github.com/sashabaranov/go-openai"
	"google.golang.org/genai"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/umputun/spamdash/app/webapi"
	"github.com/umputun/spamdash/lib/batch"
	"github.com/umputun/spamdash/lib/gateway"
	"github.com/umputun/spamdash/lib/msgcheck"
	"github.com/umputun/spamdash/lib/spamclf"
	"github.com/umputun/spamdash/lib/textproc"
)

type options struct {
	Backend string `long:"backend" env:"BACKEND" choice:"local" choice:"remote" choice:"openai" choice:"gemini" default:"local" description:"classification backend"`

	Model struct {
		Vocab      string `long:"vocab" env:"VOCAB" default:"data/vocabulary.json" description:"fitted vocabulary artifact"`
		Classifier string `long:"classifier" env:"CLASSIFIER" default:"data/model.json" description:"trained classifier artifact"`
	} `group:"model" namespace:"model" env-namespace:"MODEL"`

	StopWords  []string `long:"stopwords" env:"STOPWORDS" env-delim:"," description:"extra stop words files"`
	StripEmoji bool     `long:"strip-emoji" env:"STRIP_EMOJI" description:"remove emojis before classification"`

	Remote struct {
		URL        string        `long:"url" env:"URL" description:"remote prediction endpoint, disabled if not set"`
		Timeout    time.Duration `long:"timeout" env:"TIMEOUT" default:"5s" description:"timeout of a single attempt"`
		Retries    int           `long:"retries" env:"RETRIES" default:"2" description:"extra attempts on connectivity errors"`
		RetryDelay time.Duration `long:"retry-delay" env:"RETRY_DELAY" default:"500ms" description:"delay between attempts"`
	} `group:"remote" namespace:"remote" env-namespace:"REMOTE"`

	OpenAI struct {
		Token             string `long:"token" env:"TOKEN" description:"openai token, disabled if not set"`
		APIBase           string `long:"apibase" env:"API_BASE" description:"custom openai compatible api url"`
		Prompt            string `long:"prompt" env:"PROMPT" default:"" description:"system prompt, if empty uses builtin default"`
		Model             string `long:"model" env:"MODEL" default:"gpt-4o-mini" description:"openai model"`
		MaxTokensResponse int    `long:"max-tokens-response" env:"MAX_TOKENS_RESPONSE" default:"1024" description:"max tokens in response"`
		MaxTokensRequest  int    `long:"max-tokens-request" env:"MAX_TOKENS_REQUEST" default:"2048" description:"max tokens in request"`
		MaxSymbolsRequest int    `long:"max-symbols-request" env:"MAX_SYMBOLS_REQUEST" default:"8192" description:"max symbols in request, fallback if tokenizer failed"`
	} `group:"openai" namespace:"openai" env-namespace:"OPENAI"`

	Gemini struct {
		Token             string `long:"token" env:"TOKEN" description:"gemini api key, disabled if not set"`
		Prompt            string `long:"prompt" env:"PROMPT" default:"" description:"system prompt, if empty uses builtin default"`
		Model             string `long:"model" env:"MODEL" default:"gemini-2.0-flash" description:"gemini model"`
		MaxTokensResponse int    `long:"max-tokens-response" env:"MAX_TOKENS_RESPONSE" default:"1024" description:"max tokens in response"`
		MaxTokensRequest  int    `long:"max-tokens-request" env:"MAX_TOKENS_REQUEST" default:"2048" description:"max tokens in request"`
	} `group:"gemini" namespace:"gemini" env-namespace:"GEMINI"`

	Cache struct {
		TTL  time.Duration `long:"ttl" env:"TTL" default:"0s" description:"cache predictions for this long, disabled if 0"`
		Size int           `long:"size" env:"SIZE" default:"10000" description:"max cached predictions per backend"`
	} `group:"cache" namespace:"cache" env-namespace:"CACHE"`

	Message string `long:"msg" env:"MSG" description:"single message to check"`
	Batch   string `long:"batch" env:"BATCH" description:"file with messages to check, one per line"`
	Out     string `long:"out" env:"OUT" description:"csv file for batch results"`

	Server struct {
		Enabled     bool          `long:"enabled" env:"ENABLED" description:"enable web server"`
		ListenAddr  string        `long:"listen" env:"LISTEN" default:":8080" description:"listen address"`
		AuthUser    string        `long:"auth-user" env:"AUTH_USER" default:"spamdash" description:"basic auth user"`
		AuthPasswd  string        `long:"auth" env:"AUTH" default:"" description:"basic auth password, 'auto' to generate"`
		SessionTTL  time.Duration `long:"session-ttl" env:"SESSION_TTL" default:"30m" description:"idle session ttl"`
		HistorySize int           `long:"history-size" env:"HISTORY_SIZE" default:"0" description:"max history entries per session, 0 for unlimited"`
		MaxBatch    int           `long:"max-batch" env:"MAX_BATCH" default:"10000" description:"max messages per batch, 0 for unlimited"`
		RateLimit   float64       `long:"rate-limit" env:"RATE_LIMIT" default:"50" description:"requests per second per client"`
	} `group:"server" namespace:"server" env-namespace:"SERVER"`

	Logger struct {
		Enabled    bool   `long:"enabled" env:"ENABLED" description:"enable detection log"`
		FileName   string `long:"file" env:"FILE"  default:"spamdash.log" description:"location of detection log"`
		MaxSize    string `long:"max-size" env:"MAX_SIZE" default:"100M" description:"maximum size before it gets rotated"`
		MaxBackups int    `long:"max-backups" env:"MAX_BACKUPS" default:"10" description:"maximum number of old log files to retain"`
	} `group:"logger" namespace:"logger" env-namespace:"LOGGER"`

	Dbg bool `long:"dbg" env:"DEBUG" description:"debug mode"`

	msgSet bool // --msg passed, even if empty
}

var revision = "local"

func main() {
	fmt.Printf("spamdash %s\n", revision)
	var opts options
	p := flags.NewParser(&opts, flags.PrintErrors|flags.PassDoubleDash|flags.HelpFlag)
	if _, err := p.Parse(); err != nil {
		var flagsErr *flags.Error
		if !errors.As(err, &flagsErr) || flagsErr.Type != flags.ErrHelp {
			log.Printf("[ERROR] cli error: %v", err)
		}
		os.Exit(2)
	}
	if opt := p.FindOptionByLongName("msg"); opt != nil && opt.IsSet() {
		opts.msgSet = true
	}

	if opts.Server.Enabled && opts.Server.AuthPasswd == "auto" {
		passwd, err := webapi.GenerateRandomPassword(20)
		if err != nil {
			log.Printf("[ERROR] can't generate random password: %v", err)
			os.Exit(1)
		}
		opts.Server.AuthPasswd = passwd
		fmt.Printf("generated basic auth password for user %s: %q\n", opts.Server.AuthUser, passwd)
	}

	setupLog(opts.Dbg, opts.OpenAI.Token, opts.Gemini.Token, opts.Server.AuthPasswd)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		// catch signal and invoke graceful termination
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		<-stop
		log.Printf("[WARN] interrupt signal")
		cancel()
	}()

	if err := execute(ctx, opts); err != nil {
		if errors.Is(err, msgcheck.ErrValidation) {
			os.Exit(2)
		}
		log.Printf("[ERROR] %v", err)
		os.Exit(1)
	}
}

func execute(ctx context.Context, opts options) error {
	gateways, err := makeGateways(ctx, opts)
	if err != nil {
		return fmt.Errorf("can't make backends: %w", err)
	}

	loggerWr, err := makeDetectionLogWriter(opts)
	if err != nil {
		return fmt.Errorf("can't make detection log writer: %w", err)
	}
	defer loggerWr.Close()
	detectionLogger := makeDetectionLogger(loggerWr)

	if opts.Server.Enabled {
		return runServer(ctx, opts, gateways, detectionLogger)
	}

	gw, ok := gateways[opts.Backend]
	if !ok {
		return fmt.Errorf("backend %q is not available", opts.Backend)
	}

	switch {
	case opts.Batch != "":
		return runBatch(ctx, gw, opts.Batch, opts.Out, detectionLogger)
	case opts.msgSet:
		return runCheck(ctx, gw, opts.Message, detectionLogger)
	}
	return errors.New("nothing to do, set --msg, --batch or --server.enabled")
}

// makeGateways creates all configured backends. Local backend is skipped if its artifacts can't be loaded,
// other backends are still offered.
func makeGateways(ctx context.Context, opts options) (map[string]gateway.Gateway, error) {
	res := map[string]gateway.Gateway{}

	if pipeline, err := makePipeline(opts); err != nil {
		log.Printf("[WARN] local backend disabled, %v", err)
	} else {
		res["local"] = gateway.NewLocal(pipeline)
	}

	if opts.Remote.URL != "" {
		res["remote"] = gateway.NewRemote(gateway.RemoteConfig{
			URL:        opts.Remote.URL,
			Timeout:    opts.Remote.Timeout,
			Retries:    opts.Remote.Retries,
			RetryDelay: opts.Remote.RetryDelay,
		})
		log.Printf("[INFO] remote backend enabled, %s", opts.Remote.URL)
	}

	if opts.OpenAI.Token != "" {
		config := openai.DefaultConfig(opts.OpenAI.Token)
		if opts.OpenAI.APIBase != "" {
			config.BaseURL = opts.OpenAI.APIBase
		}
		res["openai"] = gateway.NewOpenAI(openai.NewClientWithConfig(config), gateway.LLMConfig{
			Model:             opts.OpenAI.Model,
			SystemPrompt:      opts.OpenAI.Prompt,
			MaxTokensResponse: opts.OpenAI.MaxTokensResponse,
			MaxTokensRequest:  opts.OpenAI.MaxTokensRequest,
			MaxSymbolsRequest: opts.OpenAI.MaxSymbolsRequest,
		})
		log.Printf("[INFO] openai backend enabled, model %s", opts.OpenAI.Model)
	}

	if opts.Gemini.Token != "" {
		client, gerr := genai.NewClient(ctx, &genai.ClientConfig{APIKey: opts.Gemini.Token, Backend: genai.BackendGeminiAPI})
		if gerr != nil {
			return nil, fmt.Errorf("can't make gemini client: %w", gerr)
		}
		res["gemini"] = gateway.NewGemini(client.Models, gateway.LLMConfig{
			Model:             opts.Gemini.Model,
			SystemPrompt:      opts.Gemini.Prompt,
			MaxTokensResponse: opts.Gemini.MaxTokensResponse,
			MaxTokensRequest:  opts.Gemini.MaxTokensRequest,
		})
		log.Printf("[INFO] gemini backend enabled, model %s", opts.Gemini.Model)
	}

	if opts.Cache.TTL > 0 {
		for name, gw := range res {
			res[name] = gateway.NewCached(gw, opts.Cache.TTL, opts.Cache.Size)
		}
		log.Printf("[DEBUG] predictions cached for %v, max %d per backend", opts.Cache.TTL, opts.Cache.Size)
	}
	return res, nil
}

// makePipeline loads model artifacts and stop words, returns the local classification pipeline
func makePipeline(opts options) (*spamclf.Pipeline, error) {
	for _, f := range []string{opts.Model.Vocab, opts.Model.Classifier} {
		if !fileutils.IsFile(f) {
			return nil, fmt.Errorf("%w: artifact %s not found", msgcheck.ErrModelUnavailable, f)
		}
	}
	model, err := spamclf.LoadModelFiles(opts.Model.Vocab, opts.Model.Classifier)
	if err != nil {
		return nil, err
	}

	normOpts := []textproc.Option{}
	if len(opts.StopWords) > 0 {
		extra, serr := readStopWords(opts.StopWords)
		if serr != nil {
			return nil, serr
		}
		normOpts = append(normOpts, textproc.WithStopWords(append(textproc.EnglishStopWords(), extra...)...))
	}
	if opts.StripEmoji {
		normOpts = append(normOpts, textproc.WithEmojiRemoval())
	}
	normalizer := textproc.NewNormalizer(normOpts...)
	log.Printf("[INFO] local model loaded, features: %d, stop words: %d",
		model.Vectorizer.Dim(), normalizer.StopWordsCount())
	return spamclf.NewPipeline(normalizer, model), nil
}

func readStopWords(files []string) ([]string, error) {
	readers := make([]io.Reader, 0, len(files))
	for _, f := range files {
		fh, err := os.Open(f) //nolint:gosec // path is from cli options
		if err != nil {
			return nil, fmt.Errorf("can't open stop words %s: %w", f, err)
		}
		defer fh.Close()
		readers = append(readers, fh)
	}
	words, err := textproc.ReadStopWords(readers...)
	if err != nil {
		return nil, fmt.Errorf("can't read stop words: %w", err)
	}
	return words, nil
}

func runServer(ctx context.Context, opts options, gateways map[string]gateway.Gateway, onDetect webapi.DetectionFunc) error {
	srv := webapi.NewServer(webapi.Config{
		Version:        revision,
		ListenAddr:     opts.Server.ListenAddr,
		Gateways:       gateways,
		DefaultBackend: opts.Backend,
		AuthUser:       opts.Server.AuthUser,
		AuthPasswd:     opts.Server.AuthPasswd,
		SessionTTL:     opts.Server.SessionTTL,
		HistorySize:    opts.Server.HistorySize,
		MaxBatch:       opts.Server.MaxBatch,
		RateLimit:      opts.Server.RateLimit,
		OnDetect:       onDetect,
	})
	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("web server failed: %w", err)
	}
	return nil
}

// runCheck classifies a single message and prints the verdict
func runCheck(ctx context.Context, gw gateway.Gateway, msg string, onDetect webapi.DetectionFunc) error {
	res, err := gw.Infer(ctx, msg)
	if err != nil {
		if errors.Is(err, msgcheck.ErrValidation) {
			fmt.Println(color.YellowString("message is empty, nothing to check"))
		}
		return fmt.Errorf("check with %s failed: %w", gw.Name(), err)
	}
	onDetect(gw.Name(), msg, res)

	fmt.Printf("prediction: %s\n", labelColor(res.Label))
	fmt.Printf("spam: %.2f%%, ham: %.2f%%\n", res.Probabilities.Spam*100, res.Probabilities.Ham*100)
	return nil
}

// runBatch classifies messages from the file, prints a row per message and the summary.
// Partial results are printed and saved even if the batch stopped early.
func runBatch(ctx context.Context, gw gateway.Gateway, inpFile, outFile string, onDetect webapi.DetectionFunc) error {
	fh, err := os.Open(inpFile) //nolint:gosec // path is from cli options
	if err != nil {
		return fmt.Errorf("can't open batch file: %w", err)
	}
	defer fh.Close()
	msgs, err := batch.ReadMessages(fh)
	if err != nil {
		return fmt.Errorf("can't read batch file %s: %w", inpFile, err)
	}

	runner := batch.NewRunner(gw).WithProgress(func(idx int, item batch.Item) {
		if item.OK() {
			onDetect(gw.Name(), item.Message, item.Result)
			fmt.Printf("%4d  %-5s  %6.2f%%  %s\n", idx+1, labelColor(item.Result.Label),
				item.Result.Probabilities.Spam*100, shorten(item.Message, 60))
			return
		}
		fmt.Printf("%4d  %s  %s\n", idx+1, color.MagentaString(item.ResultText()), shorten(item.Message, 60))
	})
	rep, runErr := runner.Run(ctx, msgs)
	if errors.Is(runErr, msgcheck.ErrEmptyBatch) {
		return fmt.Errorf("batch file %s: %w", inpFile, runErr)
	}

	s := rep.Summary
	fmt.Printf("total: %d, spam: %d (%.2f%%), ham: %d (%.2f%%), errors: %d (%.2f%%)\n",
		s.Total, s.Spam, s.SpamPercent(), s.Ham, s.HamPercent(), s.Errors, s.ErrorPercent())

	if outFile != "" {
		if err := writeBatchCSV(outFile, rep); err != nil {
			return err
		}
		log.Printf("[INFO] batch results saved to %s", outFile)
	}
	return runErr
}

func writeBatchCSV(fileName string, rep batch.Report) error {
	fh, err := os.Create(fileName) //nolint:gosec // path is from cli options
	if err != nil {
		return fmt.Errorf("can't create %s: %w", fileName, err)
	}
	if err := batch.WriteCSV(fh, rep); err != nil {
		_ = fh.Close()
		return fmt.Errorf("can't write %s: %w", fileName, err)
	}
	return fh.Close()
}

func labelColor(label msgcheck.Label) string {
	if label == msgcheck.LabelSpam {
		return color.New(color.FgHiRed, color.Bold).Sprint(label)
	}
	return color.GreenString(string(label))
}

func shorten(s string, size int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= size {
		return s
	}
	return string(r[:size-3]) + "..."
}

// makeDetectionLogger creates logger to keep reports about classified messages.
// It writes json lines to the provided writer.
func makeDetectionLogger(wr io.Writer) webapi.DetectionFunc {
	return func(backend, msg string, res msgcheck.Result) {
		text := strings.ReplaceAll(msg, "\n", " ")
		text = strings.TrimSpace(text)
		log.Printf("[DEBUG] %s by %s: %s", res.Label, backend, text)
		m := struct {
			TimeStamp  string         `json:"ts"`
			Backend    string         `json:"backend"`
			Text       string         `json:"text"`
			Prediction msgcheck.Label `json:"prediction"`
			Spam       float64        `json:"spam"`
			Ham        float64        `json:"ham"`
		}{
			TimeStamp:  time.Now().In(time.Local).Format(time.RFC3339),
			Backend:    backend,
			Text:       text,
			Prediction: res.Label,
			Spam:       res.Probabilities.Spam,
			Ham:        res.Probabilities.Ham,
		}
		line, err := json.Marshal(&m)
		if err != nil {
			log.Printf("[WARN] can't marshal json, %v", err)
			return
		}
		if _, err := wr.Write(append(line, '\n')); err != nil {
			log.Printf("[WARN] can't write to log, %v", err)
		}
	}
}

// makeDetectionLogWriter creates detection log writer,
// it parses options and makes lumberjack logger with rotation
func makeDetectionLogWriter(opts options) (io.WriteCloser, error) {
	if !opts.Logger.Enabled {
		return nopWriteCloser{io.Discard}, nil
	}

	maxSize, err := sizeParse(opts.Logger.MaxSize)
	if err != nil {
		return nil, fmt.Errorf("can't parse logger MaxSize: %w", err)
	}
	maxSize /= 1048576

	log.Printf("[INFO] detection log enabled for %s, max size %dM", opts.Logger.FileName, maxSize)
	return &lumberjack.Logger{
		Filename:   opts.Logger.FileName,
		MaxSize:    int(maxSize), //nolint:gosec // in MB, small
		MaxBackups: opts.Logger.MaxBackups,
		Compress:   true,
		LocalTime:  true,
	}, nil
}

// sizeParse parses size with optional k/m/g/t suffix, in any case
func sizeParse(inp string) (uint64, error) {
	if inp == "" {
		return 0, errors.New("empty value")
	}
	for i, sfx := range []string{"k", "m", "g", "t"} {
		if strings.HasSuffix(strings.ToLower(inp), sfx) {
			val, err := strconv.Atoi(inp[:len(inp)-1])
			if err != nil {
				return 0, fmt.Errorf("can't parse %s: %w", inp, err)
			}
			return uint64(float64(val) * math.Pow(float64(1024), float64(i+1))), nil
		}
	}
	return strconv.ParseUint(inp, 10, 64)
}

type nopWriteCloser struct{ io.Writer }

func (n nopWriteCloser) Close() error { return nil }

func setupLog(dbg bool, secrets ...string) {
	logOpts := []lgr.Option{lgr.Msec, lgr.LevelBraces, lgr.StackTraceOnError}
	if dbg {
		logOpts = []lgr.Option{lgr.Debug, lgr.CallerFile, lgr.CallerFunc, lgr.Msec, lgr.LevelBraces, lgr.StackTraceOnError}
	}

	colorizer := lgr.Mapper{
		ErrorFunc:  func(s string) string { return color.New(color.FgHiRed).Sprint(s) },
		WarnFunc:   func(s string) string { return color.New(color.FgRed).Sprint(s) },
		InfoFunc:   func(s string) string { return color.New(color.FgYellow).Sprint(s) },
		DebugFunc:  func(s string) string { return color.New(color.FgWhite).Sprint(s) },
		CallerFunc: func(s string) string { return color.New(color.FgBlue).Sprint(s) },
		TimeFunc:   func(s string) string { return color.New(color.FgCyan).Sprint(s) },
	}
	logOpts = append(logOpts, lgr.Map(colorizer))

	nonEmpty := make([]string, 0, len(secrets))
	for _, s := range secrets {
		if s != "" {
			nonEmpty = append(nonEmpty, s)
		}
	}
	if len(nonEmpty) > 0 {
		logOpts = append(logOpts, lgr.Secret(nonEmpty...))
	}
	lgr.SetupStdLogger(logOpts...)
	lgr.Setup(logOpts...)
}
