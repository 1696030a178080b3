package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"video-wizard/internal/audio"
	"video-wizard/internal/config"
	"video-wizard/internal/models"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var errNoAudio = errors.New("speech backend returned no audio")

var speakCmd = &cobra.Command{
	Use:   "speak [TEXT]",
	Short: "Synthesize text with a catalog voice into a WAV file",
	Long:  `Send TEXT to the speech backend with the given voice and write the decoded PCM as a WAV file.`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		voiceName, _ := cmd.Flags().GetString("voice")
		out, _ := cmd.Flags().GetString("out")

		voice, ok := models.FindVoiceByName(voiceName)
		if !ok {
			return fmt.Errorf("unknown voice %q", voiceName)
		}

		logger, err := newLogger()
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		defer logger.Sync()

		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		b, err := newBackends(cfg, logger)
		if err != nil {
			return err
		}
		defer b.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		b64, err := b.speech.SynthesizeSpeech(ctx, strings.Join(args, " "), voice.VoiceName)
		if err != nil {
			return fmt.Errorf("failed to synthesize speech: %w", err)
		}
		if b64 == "" {
			return errNoAudio
		}
		pcm, err := audio.DecodeBase64(b64)
		if err != nil {
			return err
		}
		buf, err := audio.DecodeAudioData(pcm, cfg.AudioSampleRate, 1)
		if err != nil {
			return err
		}

		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", out, err)
		}
		if err := audio.EncodeWAV(f, buf); err != nil {
			f.Close()
			return fmt.Errorf("failed to write %s: %w", out, err)
		}
		if err := f.Close(); err != nil {
			return err
		}

		logger.Info("Speech written", zap.String("voice", voice.Name), zap.String("file", out), zap.Float64("seconds", buf.Duration()))
		return nil
	},
}

func init() {
	speakCmd.Flags().String("voice", models.DefaultVoice().VoiceName, "backend voice name, e.g. Kore or Puck")
	speakCmd.Flags().StringP("out", "o", "speech.wav", "output WAV file")
	rootCmd.AddCommand(speakCmd)
}
