package transfer

type AcceptPost struct {
	FileName string `json:"fileName"`
	Caption  string `json:"caption"`
}

type RejectPost struct {
	FileName string `json:"fileName"`
}

type PublishPost struct {
	ID string `json:"id"`
}

type SchedulePost struct {
	ID            string `json:"id"`
	ScheduledTime string `json:"scheduledTime"`
}
