package config

type WorkerKeyStruct struct {
	PersistAnswersQueue   string
	PersistIntegrityQueue string
}

var WorkerKey = &WorkerKeyStruct{
	PersistAnswersQueue:   "persist_answers_queue",
	PersistIntegrityQueue: "persist_integrity_queue",
}
