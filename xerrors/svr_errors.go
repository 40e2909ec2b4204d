package xerrors

var (
	// ErrEmptyData 训练集为空或过滤后为空。
	ErrEmptyData = New(ErrInvalidArg, 400001, "empty data", "dataset must contain at least one sample", nil)
	// ErrDimMismatch 特征维度不一致。
	ErrDimMismatch = New(ErrInvalidArg, 400002, "dimension mismatch", "feature vectors must share dimensionality", nil)
	// ErrInvalidConfig 训练或服务配置非法。
	ErrInvalidConfig = New(ErrInvalidArg, 400003, "invalid config", "check trainer parameters", nil)
	// ErrNotSquare 预计算核矩阵不是方阵。
	ErrNotSquare = New(ErrInvalidArg, 400004, "matrix must be square", "precomputed kernel matrix is not N x N", nil)
	// ErrNotSymmetric 预计算核矩阵不对称。
	ErrNotSymmetric = New(ErrInvalidArg, 400005, "matrix must be symmetric", "precomputed kernel matrix is not symmetric", nil)
	// ErrInvalidKernel 核函数对某一对样本返回 NaN/Inf。
	ErrInvalidKernel = New(ErrInvalidArg, 400006, "invalid kernel value", "kernel returned NaN or Inf", nil)
	// ErrUnknownKernel 核函数描述无法解析。
	ErrUnknownKernel = New(ErrInvalidArg, 400007, "unknown kernel", "kernel descriptor cannot be parsed", nil)
	// ErrInvalidMask 样本掩码长度与数据集不一致。
	ErrInvalidMask = New(ErrInvalidArg, 400008, "invalid mask", "mask length must equal dataset size", nil)
	// ErrInvalidSample 样本包含 NaN/Inf。
	ErrInvalidSample = New(ErrInvalidArg, 400009, "invalid sample", "features and targets must be finite", nil)

	// ErrNotTrained 模型尚未训练或加载。
	ErrNotTrained = New(ErrFailedPrecondition, 412001, "model not trained", "train or load a model before calling regress", nil)

	// ErrCacheMiss 核缓存未命中。
	ErrCacheMiss = New(ErrNotFound, 404001, "kernel cache miss", "no cached kernel matrix for key", nil)
	// ErrObjectNotFound 对象存储中不存在目标对象。
	ErrObjectNotFound = New(ErrNotFound, 404002, "object not found", "object does not exist in storage", nil)

	// ErrMalformedCache 核缓存文件截断或尺寸不符。
	ErrMalformedCache = New(ErrDataLoss, 500001, "malformed kernel cache", "kernel cache content is truncated or inconsistent", nil)
	// ErrMalformedModel 模型文件截断或格式错误。
	ErrMalformedModel = New(ErrDataLoss, 500002, "malformed model", "model content is truncated or inconsistent", nil)

	// ErrStoreUnavailable 远端缓存或对象存储不可用。
	ErrStoreUnavailable = New(ErrUnavailable, 503001, "store unavailable", "remote store rejected the request", nil)

	// ErrTrainingCanceled 训练被取消。
	ErrTrainingCanceled = New(ErrCanceled, 499001, "training canceled", "context canceled during optimization", nil)
)
