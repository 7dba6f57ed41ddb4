package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const (
	DefaultStudentsSubDir = "students"
	DefaultTeachersSubDir = "teachers"
)

const (
	defaultCameraIndex       = 0
	defaultCameraWidth       = 640
	defaultCameraHeight      = 480
	defaultCameraFPS         = 30
	defaultEnrollmentTarget  = 20
	defaultSampleImageSize   = 160
	defaultMinSamplesClass   = 20
	defaultMinFaceSize       = 50
	defaultFrameQueueSize    = 5
	defaultStageQueueSize    = 1
	defaultTrainSeed         = 42
	defaultRecogThreshold    = 0.6
	defaultDetectionScale    = 0.25
	defaultHoldoutRatio      = 0.2
	defaultSeancePollSeconds = 30
)

type Config struct {
	// dataset root (where enrollment face crops are stored)
	DatasetPath  string
	StudentsPath string // full-calculated path for student identity folders
	TeachersPath string // full-calculated path for teacher identity folders

	// trained artifact storage
	ModelsPath     string
	ClassifierPath string
	LabelMapPath   string

	// database path
	DatabasePath string

	// camera settings
	CameraIndex  int
	CameraWidth  int
	CameraHeight int
	CameraFPS    int

	// enrollment settings
	EnrollmentTargetImages int // samples captured per completed enrollment
	SampleImageSize        int // square crop size in pixels

	// training settings
	MinSamplesPerClass int
	HoldoutRatio       float64
	TrainSeed          int64

	// recognition settings
	RecognitionThreshold float64 // minimum class probability to accept an identity
	DetectionScale       float64 // downsample factor applied before face location
	MinFaceSize          int     // boxes smaller than this are not cropped
	FrameQueueSize       int
	StageQueueSize       int

	// seance polling
	SeancePollInterval time.Duration

	// face detection/embedding model paths (DNN)
	FaceDNNNetConfigPath  string
	FaceDNNNetModelPath   string
	FaceEmbedderModelPath string
	FaceEmbedderModelName string

	// http surface
	ListenAddr string
	APIKeyHash string // bcrypt hash; empty disables the API key check
}

func getEnvOrDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvIntOrDefault(envVar string, defaultVal int) int {
	valStr := os.Getenv(envVar)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil {
		log.Printf("Warning: Invalid %s '%s'. Using default %d. Error: %v", envVar, valStr, defaultVal, err)
		return defaultVal
	}
	return val
}

func getEnvFloatOrDefault(envVar string, defaultVal float64) float64 {
	valStr := os.Getenv(envVar)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.ParseFloat(valStr, 64)
	if err != nil {
		log.Printf("Warning: Invalid %s '%s'. Using default %g. Error: %v", envVar, valStr, defaultVal, err)
		return defaultVal
	}
	return val
}

func LoadConfig() (Config, error) {
	dataset := getEnvOrDefault("DATASET_PATH", filepath.Join(".", "dataset"))
	absDataset, err := filepath.Abs(dataset)
	if err != nil {
		return Config{}, fmt.Errorf("failed to get absolute path for dataset '%s': %w", dataset, err)
	}

	models := getEnvOrDefault("MODELS_PATH", filepath.Join(".", "models"))
	absModels, err := filepath.Abs(models)
	if err != nil {
		return Config{}, fmt.Errorf("failed to get absolute path for models '%s': %w", models, err)
	}

	dbPath := getEnvOrDefault("DATABASE_PATH", "attendance.db")

	pollSeconds := getEnvIntOrDefault("SEANCE_POLL_SECONDS", defaultSeancePollSeconds)
	if pollSeconds <= 0 {
		pollSeconds = defaultSeancePollSeconds
	}

	cfg := Config{
		DatasetPath:  absDataset,
		StudentsPath: filepath.Join(absDataset, DefaultStudentsSubDir),
		TeachersPath: filepath.Join(absDataset, DefaultTeachersSubDir),

		ModelsPath:     absModels,
		ClassifierPath: filepath.Join(absModels, "face_classifier.gob"),
		LabelMapPath:   filepath.Join(absModels, "label_map.json"),

		DatabasePath: dbPath,

		CameraIndex:  getEnvIntOrDefault("CAMERA_INDEX", defaultCameraIndex),
		CameraWidth:  getEnvIntOrDefault("CAMERA_WIDTH", defaultCameraWidth),
		CameraHeight: getEnvIntOrDefault("CAMERA_HEIGHT", defaultCameraHeight),
		CameraFPS:    getEnvIntOrDefault("CAMERA_FPS", defaultCameraFPS),

		EnrollmentTargetImages: getEnvIntOrDefault("ENROLLMENT_TARGET_IMAGES", defaultEnrollmentTarget),
		SampleImageSize:        getEnvIntOrDefault("SAMPLE_IMAGE_SIZE", defaultSampleImageSize),

		MinSamplesPerClass: getEnvIntOrDefault("MIN_SAMPLES_PER_CLASS", defaultMinSamplesClass),
		HoldoutRatio:       getEnvFloatOrDefault("TRAIN_HOLDOUT_RATIO", defaultHoldoutRatio),
		TrainSeed:          int64(getEnvIntOrDefault("TRAIN_SEED", defaultTrainSeed)),

		RecognitionThreshold: getEnvFloatOrDefault("RECOGNITION_THRESHOLD", defaultRecogThreshold),
		DetectionScale:       getEnvFloatOrDefault("DETECTION_SCALE", defaultDetectionScale),
		MinFaceSize:          getEnvIntOrDefault("MIN_FACE_SIZE", defaultMinFaceSize),
		FrameQueueSize:       getEnvIntOrDefault("FRAME_QUEUE_SIZE", defaultFrameQueueSize),
		StageQueueSize:       getEnvIntOrDefault("STAGE_QUEUE_SIZE", defaultStageQueueSize),

		SeancePollInterval: time.Duration(pollSeconds) * time.Second,

		FaceDNNNetConfigPath:  getEnvOrDefault("FACE_DNN_CONFIG_PATH", "./models/deploy.prototxt.txt"),
		FaceDNNNetModelPath:   getEnvOrDefault("FACE_DNN_MODEL_PATH", "./models/res10_300x300_ssd_iter_140000_fp16.caffemodel"),
		FaceEmbedderModelPath: getEnvOrDefault("FACE_EMBEDDER_MODEL_PATH", "./models/facenet.onnx"),
		FaceEmbedderModelName: getEnvOrDefault("FACE_EMBEDDER_MODEL_NAME", "facenet"),

		ListenAddr: getEnvOrDefault("LISTEN_ADDR", ":8080"),
		APIKeyHash: getEnvOrDefault("API_KEY_HASH", ""),
	}

	if cfg.EnrollmentTargetImages <= 0 {
		return Config{}, fmt.Errorf("ENROLLMENT_TARGET_IMAGES must be positive, got %d", cfg.EnrollmentTargetImages)
	}
	if cfg.RecognitionThreshold <= 0 || cfg.RecognitionThreshold > 1 {
		return Config{}, fmt.Errorf("RECOGNITION_THRESHOLD must be in (0,1], got %g", cfg.RecognitionThreshold)
	}
	if cfg.DetectionScale <= 0 || cfg.DetectionScale > 1 {
		return Config{}, fmt.Errorf("DETECTION_SCALE must be in (0,1], got %g", cfg.DetectionScale)
	}

	return cfg, nil
}
