// Package redcell implements an adaptive adversarial evaluation engine for
// autonomous AI agents.
//
// Redcell measures the security posture of a target agent by issuing a mix
// of adversarial and benign (control) commands against it and tallying how
// many malicious commands the agent executes versus rejects. The engine
// adapts across evaluation rounds: a Thompson-sampling bandit concentrates
// the attempt budget on technique categories that keep producing successful
// evasions, while a novelty-search mutation engine evolves payloads toward
// behaviors the target has not exhibited before.
//
// # Core Concepts
//
//   - Technique: a catalogued attack method with tactic labels and a source
//     classification (broad-IT versus AI/agent-specific)
//   - Payload: concrete command content instantiating a technique, tagged
//     malicious or benign
//   - Arm: a banditable category with its own reward history
//   - Evasion: a malicious payload the target executed (FALSE_NEGATIVE)
//   - Confusion matrix: the TP/FP/TN/FN/INDETERMINATE tally from which all
//     summary metrics derive
//
// # Architecture
//
// The engine is organized leaf-first:
//
//   - catalog: static registry of attack techniques
//   - scoring: ranks catalog techniques against a target profile
//   - payload: turns ranked techniques into concrete payloads
//   - bandit: Thompson-sampling allocation of the attempt budget
//   - mutation: novelty-search payload evolution
//   - knowledge: append-only shared findings store
//   - classify: confusion-matrix outcome labeling and derived metrics
//   - target: HTTP client for the black-box agent under test
//   - engine: round-based orchestration, worker roles, lifecycle
//
// # Getting Started
//
// Build a catalog and target profile, then run an evaluation:
//
//	cat, err := catalog.Load("techniques.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	cfg, err := engine.LoadConfig("run.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	client, err := target.NewHTTPClient(target.HTTPOptions{
//		BaseURL: "http://localhost:8080",
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	orch, err := engine.New(cfg, cat, client)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	summary, err := orch.Run(ctx)
//
// A run always yields a summary, even under cancellation or partial
// failure; consumers can distinguish completed attempts from
// indeterminate ones.
package redcell
