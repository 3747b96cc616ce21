package types

// Every frame on /ws is one JSON object with a "type" field.
//
// Client -> Server
// CreateGame (first frame only):
//   name: string
//   options: HostInfo   // team1, team2, best_of, duel_flag, ... banlist_hash
//   pass: string
//   notes: string
//
// JoinGame (first frame only):
//   name: string
//   room_id: number
//   pass: string
//
// UpdateDeck:
//   main: number[]
//   side: number[]
//
// Ready:
//   ready: boolean
//
// ToDuelist: {}
// ToObserver: {}
//
// Kick (host only):
//   pos: number
//
// TryStart (host only): {}
//
// Chat:
//   text: string
//
// RPSChoice:
//   value: 1 (scissor) | 2 (rock) | 3 (paper)
//
// TurnChoice:
//   going_first: boolean
//
// Rematch:
//   answer: boolean
//
// Response:
//   data: base64
//
// Server -> Client
// JoinGame:     info: HostInfo
// TypeChange:   pos?: number, host: boolean, spectator: boolean
// PlayerEnter:  name: string, pos: number
// PlayerChange: pos: number, change: "ready" | "not_ready" | "leave" | "spectate" | "moved", new_pos?: number
// WatchChange:  count: number
// Chat:         pos?: number, spectator: boolean, text: string
// AskRPS, AskTurn, DuelStart, DuelEnd, RematchWait, AskRematch: {}
// RPSResult:    choices: [own, opponent]
// DuelMessage:  data: base64
// Error:        error: string, kind?: number, value?: number
