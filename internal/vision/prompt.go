package vision

import "fmt"

// sequencePrompt is the fixed instruction for scoring an ordered frame
// sequence. The model is asked for a strict three-line answer so parsing
// stays mechanical.
func sequencePrompt(numFrames int) string {
	return fmt.Sprintf(`You are an expert NBA video analyst with 20+ years experience creating highlight reels. You know most plays are routine - only truly special sequences make the cut.

You're analyzing %d sequential frames. Be precise and only describe what you actually see across ALL the frames.

Example analyses:

"Steal at half court, drives full length, finishes with dunk"
SEQUENCE: Defender gets steal, takes ball coast-to-coast for powerful dunk over help defender.
HIGHLIGHT_SCORE: 0.9
EXPLANATION: Complete exceptional sequence with clear defensive play and strong finish.

"Player crosses over defender, pulls up for jumper"
SEQUENCE: Guard performs crossover, creates space, shoots jumper but outcome not visible.
HIGHLIGHT_SCORE: 0.4
EXPLANATION: Good individual move but cannot confirm result.

"Standard half-court possession"
SEQUENCE: Team passes ball around perimeter in regular offensive set.
HIGHLIGHT_SCORE: 0.1
EXPLANATION: Routine basketball action without exceptional elements.

For this sequence:
1. Describe exactly what you see happen
2. Score based on what's visible, not assumptions
3. Justify score in one sentence

Scoring guide:
0.9-1.0: Exceptional complete play (e.g. steal to score, poster dunk, etc.)
0.6-0.8: Very good clear play (e.g. impressive score, impressive defensive play, etc.)
0.3-0.5: Good play but incomplete (e.g. good score but not visible)
0.0-0.2: Regular action (most plays)

Respond EXACTLY like examples above:
SEQUENCE: <one clear sentence describing what happens>
HIGHLIGHT_SCORE: <0.0-1.0>
EXPLANATION: <one sentence justification>`, numFrames)
}

// classifyPrompt is the fixed instruction for the single-frame variant. The
// model assigns probabilities to three mutually exclusive categories.
const classifyPrompt = `You are an expert NBA video analyst reviewing a single frame from a game broadcast.

Classify the frame into exactly one of three categories and give a probability for each:
- short_clip: a single decisive moment worth a short highlight (dunk, block, steal, buzzer shot)
- long_clip: part of an extended play worth a longer highlight (fast break, multi-pass sequence)
- unimportant: routine action, stoppages, crowd shots, replays of nothing special

Probabilities must sum to 1.0.

Respond EXACTLY in this format:
SHORT_CLIP: <0.0-1.0>
LONG_CLIP: <0.0-1.0>
UNIMPORTANT: <0.0-1.0>`
