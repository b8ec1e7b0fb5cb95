// conf/defaults.go default values for settings
package conf

import (
	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "dirmigrate")
	viper.SetDefault("main.log.enabled", true)
	viper.SetDefault("main.log.path", "logs/dirmigrate.log")
	viper.SetDefault("main.log.rotation", RotationDaily)
	viper.SetDefault("main.log.maxsize", 1048576)

	viper.SetDefault("directory.host", "localhost")
	viper.SetDefault("directory.port", 389)
	viper.SetDefault("directory.tls", false)
	viper.SetDefault("directory.skiptlsverify", false)
	viper.SetDefault("directory.binddn", "")
	viper.SetDefault("directory.bindpassword", "")
	viper.SetDefault("directory.basedn", "")
	viper.SetDefault("directory.groupfilter", "(objectClass=organizationalUnit)")
	viper.SetDefault("directory.userfilter", "(objectClass=inetOrgPerson)")
	viper.SetDefault("directory.groupnameattr", "ou")
	viper.SetDefault("directory.groupdescattr", "description")
	viper.SetDefault("directory.usernameattr", "uid")
	viper.SetDefault("directory.givennameattr", "givenName")
	viper.SetDefault("directory.familynameattr", "sn")
	viper.SetDefault("directory.emailattr", "mail")
	viper.SetDefault("directory.credentialattr", "userPassword")

	viper.SetDefault("output.sqlite.enabled", true)
	viper.SetDefault("output.sqlite.path", "dirmigrate.db")

	viper.SetDefault("output.mysql.enabled", false)
	viper.SetDefault("output.mysql.username", "dirmigrate")
	viper.SetDefault("output.mysql.password", "")
	viper.SetDefault("output.mysql.database", "dirmigrate")
	viper.SetDefault("output.mysql.host", "localhost")
	viper.SetDefault("output.mysql.port", "3306")

	viper.SetDefault("migration.batchsize", 100)
	viper.SetDefault("migration.concurrency", 10)
	viper.SetDefault("migration.dryrun", false)
}
