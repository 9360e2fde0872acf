//go:build js && wasm

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"syscall/js"

	"tiny-td-go/internal/engine"
)

var (
	startFnOnce sync.Once
	trainerMu   sync.Mutex
	currentCtx  context.CancelFunc
	onSnapshot  js.Value
)

func main() {
	registerCallbacks()
	// Prevent the program from exiting.
	select {}
}

func registerCallbacks() {
	startFnOnce.Do(func() {
		js.Global().Set("tinytdRegisterSnapshotHandler", js.FuncOf(registerSnapshotHandler))
		js.Global().Set("tinytdStartTraining", js.FuncOf(startTraining))
		js.Global().Set("tinytdStopTraining", js.FuncOf(stopTraining))
	})
}

func registerSnapshotHandler(this js.Value, args []js.Value) interface{} {
	if len(args) != 1 || args[0].Type() != js.TypeFunction {
		fmt.Println("registerSnapshotHandler requires a function argument")
		return nil
	}
	onSnapshot = args[0]
	return nil
}

// startTraining takes a JSON engine config. Missing fields fall back to the
// demo defaults of the requested environment.
func startTraining(this js.Value, args []js.Value) interface{} {
	if len(args) == 0 {
		fmt.Println("startTraining requires a JSON config string")
		return nil
	}
	configJSON := []byte(args[0].String())
	var probe struct{ Env string }
	if err := json.Unmarshal(configJSON, &probe); err != nil {
		fmt.Printf("invalid config: %v\n", err)
		return nil
	}
	cfg := engine.DefaultConfig(probe.Env)
	if err := json.Unmarshal(configJSON, &cfg); err != nil {
		fmt.Printf("invalid config: %v\n", err)
		return nil
	}
	if onSnapshot.IsUndefined() || onSnapshot.IsNull() {
		fmt.Println("snapshot handler not registered")
		return nil
	}
	trainer, err := engine.NewTrainer(cfg)
	if err != nil {
		fmt.Printf("invalid config: %v\n", err)
		return nil
	}

	trainerMu.Lock()
	if currentCtx != nil {
		currentCtx()
	}
	ctx, cancel := context.WithCancel(context.Background())
	currentCtx = cancel
	trainerMu.Unlock()

	go func() {
		for snapshot := range trainer.Run(ctx) {
			payload := snapshotToJS(snapshot)
			onSnapshot.Invoke(payload)
		}
	}()
	return nil
}

func stopTraining(this js.Value, args []js.Value) interface{} {
	trainerMu.Lock()
	if currentCtx != nil {
		currentCtx()
		currentCtx = nil
	}
	trainerMu.Unlock()
	return nil
}

func positionToJS(p engine.Position) map[string]interface{} {
	return map[string]interface{}{"row": p.Row, "col": p.Col}
}

func snapshotToJS(snapshot engine.Snapshot) js.Value {
	valueMap := make([]interface{}, len(snapshot.ValueMap))
	for i, row := range snapshot.ValueMap {
		rowCopy := make([]interface{}, len(row))
		for j, v := range row {
			rowCopy[j] = v
		}
		valueMap[i] = rowCopy
	}
	layout := make([]interface{}, len(snapshot.Layout))
	for i, line := range snapshot.Layout {
		layout[i] = line
	}
	config := map[string]interface{}{
		"env":               snapshot.Config.Env,
		"algorithm":         snapshot.Config.Algorithm,
		"episodes":          snapshot.Config.Episodes,
		"seed":              snapshot.Config.Seed,
		"size":              snapshot.Config.Size,
		"epsilon":           snapshot.Config.Epsilon,
		"alpha":             snapshot.Config.Alpha,
		"gamma":             snapshot.Config.Gamma,
		"maxSteps":          snapshot.Config.MaxSteps,
		"stepDelayMs":       snapshot.Config.StepDelayMs,
		"requiredSuccesses": snapshot.Config.RequiredSuccesses,
		"deadEnds":          snapshot.Config.DeadEnds,
	}
	payload := map[string]interface{}{
		"step":              snapshot.Step,
		"episode":           snapshot.Episode,
		"episodeSteps":      snapshot.EpisodeSteps,
		"episodeReward":     snapshot.EpisodeReward,
		"reward":            snapshot.Reward,
		"position":          positionToJS(snapshot.Position),
		"goal":              positionToJS(snapshot.Goal),
		"valueMap":          valueMap,
		"layout":            layout,
		"epsilon":           snapshot.Epsilon,
		"successCount":      snapshot.SuccessCount,
		"episodesCompleted": snapshot.EpisodesCompleted,
		"totalReward":       snapshot.TotalReward,
		"totalSteps":        snapshot.TotalSteps,
		"config":            config,
		"status":            snapshot.Status,
	}
	return js.ValueOf(payload)
}
