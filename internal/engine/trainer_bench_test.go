package engine

import (
	"context"
	"testing"
)

func benchmarkEpisodes(b *testing.B, cfg Config) {
	for i := 0; i < b.N; i++ {
		trainer, err := NewTrainer(cfg)
		if err != nil {
			b.Fatalf("NewTrainer: %v", err)
		}
		ctx := context.Background()
		for range trainer.Run(ctx) {
		}
	}
}

func BenchmarkEpisodeLavaQLearning(b *testing.B) {
	cfg := DefaultConfig(EnvLava)
	cfg.Episodes = 1
	cfg.Seed = 99
	benchmarkEpisodes(b, cfg)
}

func BenchmarkEpisodeLavaSARSA(b *testing.B) {
	cfg := DefaultConfig(EnvLava)
	cfg.Episodes = 1
	cfg.Seed = 99
	cfg.Algorithm = AlgorithmSARSA
	benchmarkEpisodes(b, cfg)
}

func BenchmarkEpisodeMaze(b *testing.B) {
	cfg := DefaultConfig(EnvMaze)
	cfg.Episodes = 1
	cfg.Seed = 99
	benchmarkEpisodes(b, cfg)
}

func BenchmarkRaceRound(b *testing.B) {
	cfg := RaceConfig{Rounds: 1, Seed: 99}
	cfg.Agent.Alpha = 0.1
	cfg.Agent.Gamma = 0.95
	cfg.Agent.Epsilon = 0.1
	for i := 0; i < b.N; i++ {
		if _, err := RunRace(context.Background(), cfg, nil); err != nil {
			b.Fatalf("RunRace: %v", err)
		}
	}
}
