package types

// Listing is the body of GET /api/rooms.
type Listing struct {
	Rooms []RoomListing `json:"rooms"`
}

type RoomUser struct {
	Name string `json:"name"`
	Pos  uint8  `json:"pos"`
}

// RoomListing flattens a room's options next to its identity so lobby
// clients can filter without a second request.
type RoomListing struct {
	RoomID    uint32 `json:"roomid"`
	RoomNotes string `json:"roomnotes"`
	NeedPass  bool   `json:"needpass"`

	Team1          uint8  `json:"team1"`
	Team2          uint8  `json:"team2"`
	BestOf         uint8  `json:"best_of"`
	DuelFlag       uint64 `json:"duel_flag"`
	ForbiddenTypes uint32 `json:"forbidden_types"`
	ExtraRules     uint32 `json:"extra_rules"`
	StartLP        uint32 `json:"start_lp"`
	StartHand      uint32 `json:"start_hand"`
	DrawCount      uint32 `json:"draw_count"`
	TimeLimit      uint16 `json:"time_limit"`
	Rule           uint8  `json:"rule"`
	NoCheck        bool   `json:"no_check"`
	NoShuffle      bool   `json:"no_shuffle"`
	BanlistHash    uint32 `json:"banlist_hash"`

	// IStart is "waiting" until the host starts, then "start".
	IStart string     `json:"istart"`
	Users  []RoomUser `json:"users"`
}
