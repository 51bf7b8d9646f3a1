package constants

// Redis Key 前缀和格式常量
// 使用统一的命名规范: app:{module}:{entity}:{unique_id}
const (
	// AppPrefix 是所有Redis Key的统一应用前缀
	AppPrefix = "app"

	// AuthModulePrefix 认证模块
	AuthModulePrefix = "auth"
	// MatchModulePrefix 匹配模块
	MatchModulePrefix = "match"
	// FileModulePrefix 文件模块
	FileModulePrefix = "file"

	// EntitySession 登录会话实体
	EntitySession = "session"
	// EntityLock 分布式锁实体
	EntityLock = "lock"
	// EntityReport 匹配报告实体
	EntityReport = "report"
	// EntityDedupSet 去重集合实体
	EntityDedupSet = "dedup_set"
	// EntityMD5ToResume MD5到简历ID的映射实体
	EntityMD5ToResume = "md5_to_resume"

	// KeyAuthSession 登录会话 (STRING -> userID)
	// 格式: app:auth:session:{token}
	KeyAuthSession = AppPrefix + ":" + AuthModulePrefix + ":" + EntitySession + ":%s"

	// KeyMatchLock 异步匹配任务锁 (STRING)
	// 格式: app:match:lock:{runID}
	KeyMatchLock = AppPrefix + ":" + MatchModulePrefix + ":" + EntityLock + ":%s"

	// KeyMatchReport 匹配报告缓存 (STRING, JSON)
	// 格式: app:match:report:{runID}
	KeyMatchReport = AppPrefix + ":" + MatchModulePrefix + ":" + EntityReport + ":%s"

	// KeyFileMD5Set 每个上传者的文件MD5集合 (SET)
	// 格式: app:file:dedup_set:{ownerID}
	KeyFileMD5Set = AppPrefix + ":" + FileModulePrefix + ":" + EntityDedupSet + ":%s"

	// KeyFileMD5ToResume MD5到简历ID的映射 (STRING)
	// 格式: app:file:md5_to_resume:{ownerID}:{md5}
	KeyFileMD5ToResume = AppPrefix + ":" + FileModulePrefix + ":" + EntityMD5ToResume + ":%s:%s"
)
